// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro-watch monitors a directory for new pcbro raw data files,
// decodes them as they are completed and sends mail alerts when a file
// could not be decoded or when no new data showed up for a while.
//
// Processed files are recorded in a ledger so they are not decoded twice
// across restarts.
//
// Mail alerts are configured via the MAIL_USERNAME, MAIL_PASSWORD,
// MAIL_SERVER, MAIL_PORT and MAIL_TGTS environment variables.
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-watch"

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro"
	"github.com/go-lpc/pcbro/rawsrc"
	"github.com/lestrrat-go/strftime"
	flag "github.com/spf13/pflag"
	mail "gopkg.in/gomail.v2"
)

var (
	msg = log.NewWithOptions(os.Stdout, log.Options{
		Prefix:          "pcbro-watch",
		ReportTimestamp: true,
	})
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("pcbro-watch", flag.ExitOnError)

		vers = fset.Bool("version", false, "display version and exit")

		dir   = fset.String("dir", ".", "directory to monitor")
		glob  = fset.String("glob", "*.bin", "pattern of raw file names")
		freq  = fset.Duration("freq", 30*time.Second, "probing interval")
		stale = fset.Duration("stale", 10*time.Minute, "alert when no new file appeared for that long (0 to disable)")
		db    = fset.String("db", "pcbro-watch.db", "path to the ledger of processed files")
		fcfg  = fset.String("cfg", "", "path to a YAML raw source configuration file")
		once  = fset.Bool("once", false, "scan the directory once and exit")
		list  = fset.Bool("list", false, "display the ledger and exit")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: pcbro-watch [OPTIONS]

ex:
 $> pcbro-watch -dir /data/pcbro -freq 1m
 $> pcbro-watch -list -db ./pcbro-watch.db

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		msg.Fatalf("could not parse input arguments: %+v", err)
	}

	if *vers {
		v, sum := pcbro.Version()
		fmt.Fprintf(os.Stdout, "pcbro-watch %s %s\n", v, sum)
		return
	}

	cfg := rawsrc.DefaultConfig()
	if *fcfg != "" {
		cfg, err = rawsrc.LoadConfig(*fcfg)
		if err != nil {
			msg.Fatalf("could not load configuration: %+v", err)
		}
	}

	l, err := openLedger(*db)
	if err != nil {
		msg.Fatalf("could not open ledger: %+v", err)
	}
	defer l.Close()

	if *list {
		err = display(os.Stdout, l)
		if err != nil {
			msg.Fatalf("could not display ledger: %+v", err)
		}
		return
	}

	w, err := newWatcher(*dir, *glob, cfg, l)
	if err != nil {
		msg.Fatalf("could not create watcher: %+v", err)
	}
	w.freq = *freq
	w.stale = *stale
	w.notify = mailAlert

	if *once {
		err = w.scan(time.Now())
		if err != nil {
			msg.Fatalf("could not scan %q: %+v", *dir, err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	msg.Infof("monitoring %q (freq=%v)...", *dir, *freq)
	w.run(ctx)
}

type watcher struct {
	dir   string
	glob  string
	freq  time.Duration
	stale time.Duration
	cfg   rawsrc.Config
	db    *ledger
	stamp *strftime.Strftime

	sizes  map[string]int64 // file sizes seen during the previous scan
	last   time.Time        // time of the last new file
	alerts map[string]int   // number of alerts per subject

	notify func(subject, body string) error
}

func newWatcher(dir, glob string, cfg rawsrc.Config, db *ledger) (*watcher, error) {
	stamp, err := strftime.New("%Y-%m-%d %H:%M:%S")
	if err != nil {
		return nil, fmt.Errorf("could not create time formatter: %w", err)
	}
	return &watcher{
		dir:    dir,
		glob:   glob,
		freq:   30 * time.Second,
		cfg:    cfg,
		db:     db,
		stamp:  stamp,
		sizes:  make(map[string]int64),
		last:   time.Now(),
		alerts: make(map[string]int),
		notify: func(subject, body string) error { return nil },
	}, nil
}

func (w *watcher) run(ctx context.Context) {
	tick := time.NewTicker(w.freq)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			err := w.scan(now)
			if err != nil {
				msg.Errorf("could not scan %q: %+v", w.dir, err)
			}
		}
	}
}

// scan lists the raw files of the monitored directory and processes the
// new ones whose size did not change since the previous scan.
func (w *watcher) scan(now time.Time) error {
	glob := filepath.Join(w.dir, w.glob)
	files, err := filepath.Glob(glob)
	if err != nil {
		return fmt.Errorf("could not glob %q: %w", glob, err)
	}
	sort.Strings(files)

	sizes := make(map[string]int64, len(files))
	for _, fname := range files {
		fi, err := os.Stat(fname)
		if err != nil {
			return fmt.Errorf("could not stat %q: %w", fname, err)
		}
		size := fi.Size()
		sizes[fname] = size

		_, done, err := w.db.get(fname)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		if prev, ok := w.sizes[fname]; !ok || prev != size {
			// file just appeared or is still being written.
			continue
		}

		e := w.process(fname, size, now)
		err = w.db.put(e)
		if err != nil {
			return err
		}
		w.last = now
		if e.Failed {
			w.alert(fname, fmt.Sprintf(
				"file:     %q\nsize:     %d bytes\ntriggers: %d\ntime:     %s\nerror:    %s",
				fname, size, e.Triggers, w.format(now), e.Err,
			))
		}
	}
	w.sizes = sizes

	if w.stale > 0 && now.Sub(w.last) > w.stale {
		w.alert(w.dir, fmt.Sprintf(
			"no new raw file in %q since %s (%v)",
			w.dir, w.format(w.last), now.Sub(w.last).Truncate(time.Second),
		))
	}

	return nil
}

func (w *watcher) process(fname string, size int64, now time.Time) entry {
	e := entry{
		File: fname,
		Size: size,
		Time: now.UTC(),
	}

	cfg := w.cfg
	cfg.Files = []string{fname}
	cfg.OnError = rawsrc.Abort

	src, err := rawsrc.New(cfg, rawsrc.WithLogger(msg))
	if err != nil {
		e.Failed = true
		e.Err = err.Error()
		return e
	}

	for {
		frame, ok, err := src.Poll()
		if err != nil {
			e.Failed = true
			e.Err = err.Error()
			break
		}
		if !ok || frame == nil {
			break
		}
	}
	e.Triggers = src.Stats().Triggers

	msg.Infof("processed %q: triggers=%d failed=%v", fname, e.Triggers, e.Failed)
	return e
}

const maxAlerts = 5

func (w *watcher) alert(subject, body string) {
	msg.Warnf("alert %q: %s", subject, body)
	w.alerts[subject]++
	if w.alerts[subject] > maxAlerts {
		return
	}
	err := w.notify(subject, body)
	if err != nil {
		msg.Errorf("could not send alert: %+v", err)
	}
}

// format formats t in the time zone of the experiment site.
func (w *watcher) format(t time.Time) string {
	loc, err := time.LoadLocation("CET")
	if err != nil {
		return w.stamp.FormatString(t.UTC()) + " UTC"
	}
	return w.stamp.FormatString(t.In(loc)) + " CET"
}

func display(o io.Writer, l *ledger) error {
	es, err := l.entries()
	if err != nil {
		return err
	}
	for _, e := range es {
		status := "ok"
		if e.Failed {
			status = "FAILED: " + e.Err
		}
		fmt.Fprintf(o, "%s %s size=%d triggers=%d %s\n",
			e.Time.Format(time.RFC3339), e.File, e.Size, e.Triggers, status,
		)
	}
	return nil
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = strings.Split(os.Getenv("MAIL_TGTS"), ",")
)

func mailAlert(subject, body string) error {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 || alertMailTgts[0] == "" {
		return fmt.Errorf("could not send mail alert: missing credentials")
	}

	m := mail.NewMessage()
	m.SetHeader("From", alertMailUsr)
	m.SetHeader("Bcc", alertMailTgts...)
	m.SetHeader("Subject", fmt.Sprintf("[pcbro-watch] alert: %q", subject))
	m.SetBody("text/plain", body)

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(m)
	if err != nil {
		return fmt.Errorf("could not send mail alert: %w", err)
	}
	return nil
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
