// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pcbro-srv starts a TDAQ server replaying the triggers of pcbro
// raw data files on its /pcbro/trigger output.
//
// The raw files are passed as positional arguments.
// The raw source can be configured with a YAML file whose path is given
// by the PCBRO_SRV_CFG environment variable.
package main // import "github.com/go-lpc/pcbro/cmd/pcbro-srv"

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/pcbro/rawsrc"
)

func main() {
	cmd := flags.New()

	dev := server{
		files: cmd.Args,
		fcfg:  os.Getenv("PCBRO_SRV_CFG"),
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/pcbro/trigger", dev.trigger)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type server struct {
	files []string
	fcfg  string
	cfg   rawsrc.Config

	src  *rawsrc.Source
	n    atomic.Int64 // number of sent triggers
	data chan []byte
}

func (dev *server) configure() error {
	cfg := rawsrc.DefaultConfig()
	if dev.fcfg != "" {
		var err error
		cfg, err = rawsrc.LoadConfig(dev.fcfg)
		if err != nil {
			return fmt.Errorf("could not load configuration: %w", err)
		}
	}
	if len(dev.files) > 0 {
		cfg.Files = dev.files
	}
	if len(cfg.Files) == 0 {
		return fmt.Errorf("no input raw file")
	}
	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	dev.cfg = cfg
	return nil
}

func (dev *server) reset() error {
	src, err := rawsrc.New(dev.cfg)
	if err != nil {
		return fmt.Errorf("could not create raw source: %w", err)
	}
	dev.src = src
	dev.data = make(chan []byte, 16)
	dev.n.Store(0)
	return nil
}

func (dev *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := dev.configure()
	if err != nil {
		ctx.Msg.Errorf("could not configure: %+v", err)
		return err
	}
	ctx.Msg.Infof("configured %d raw file(s)", len(dev.cfg.Files))
	return nil
}

func (dev *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return dev.reset()
}

func (dev *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return dev.reset()
}

func (dev *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (dev *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n.Load()
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (dev *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (dev *server) trigger(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *server) run(ctx tdaq.Context) error {
	err := dev.pump(ctx.Ctx)
	if err != nil {
		ctx.Msg.Errorf("could not replay triggers: %+v", err)
		return err
	}
	ctx.Msg.Infof("replayed %d triggers", dev.n.Load())
	return nil
}

// pump polls the raw source and sends the encoded triggers on the data
// channel until the source is drained or ctx is canceled.
func (dev *server) pump(ctx context.Context) error {
	for {
		frame, ok, err := dev.src.Poll()
		if err != nil {
			return fmt.Errorf("could not poll raw source: %w", err)
		}
		if !ok || frame == nil {
			return nil
		}

		raw, err := frame.MarshalTDAQ()
		if err != nil {
			return fmt.Errorf("could not encode trigger %d: %w", frame.Trigger, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case dev.data <- raw:
			dev.n.Add(1)
		}
	}
}
