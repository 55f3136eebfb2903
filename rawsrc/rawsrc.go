// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawsrc sequences raw pcbro files into a stream of decoded
// triggers.
package rawsrc // import "github.com/go-lpc/pcbro/rawsrc"

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/chmap"
	"github.com/go-lpc/pcbro/internal/mmap"
	"github.com/go-lpc/pcbro/raw"
)

// Frame is a decoded trigger.
type Frame struct {
	Ident   raw.Identity // identity of the raw file
	File    string       // name of the raw file
	Index   int          // index of the trigger within its file
	Trigger int          // index of the trigger within the stream

	Block *raw.Block // 128-column trigger block

	// Channels holds the physical channel number of each column of Block.
	Channels chmap.Table
}

// Stats summarizes the activity of a source.
type Stats struct {
	Files    int // number of processed files
	Failed   int // number of files that could not be fully decoded
	Triggers int // number of decoded triggers
}

type state uint8

const (
	running state = iota
	drained       // end-of-stream marker emitted
)

// Source is a stream of triggers decoded from a sequence of raw files.
//
// Source is not safe for concurrent use.
type Source struct {
	cfg  Config
	tbl  chmap.Table
	msg  *log.Logger
	opts []raw.Option

	state state
	cur   int          // index of the current file
	dec   *raw.Decoder // decoder of the current file
	ident raw.Identity // identity of the current file
	idx   int          // index of the next trigger within the current file

	stats Stats
}

// Option configures a Source.
type Option func(src *Source)

// WithLogger sets the logger of the source.
func WithLogger(msg *log.Logger) Option {
	return func(src *Source) {
		src.msg = msg
	}
}

// WithTable sets the channel map of the source, overriding the one from
// the configuration.
func WithTable(tbl chmap.Table) Option {
	return func(src *Source) {
		src.tbl = tbl
	}
}

// New creates a new source of triggers from the provided configuration.
// The configuration must name at least one input file.
func New(cfg Config, opts ...Option) (*Source, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("rawsrc: empty input source: %w", raw.ErrConfig)
	}

	src := &Source{
		cfg:  cfg,
		tbl:  chmap.Default(),
		opts: cfg.options(),
	}

	if cfg.ChMap != "" {
		src.tbl, err = chmap.Load(cfg.ChMap)
		if err != nil {
			return nil, fmt.Errorf("rawsrc: could not load channel map: %w", err)
		}
	}

	for _, opt := range opts {
		opt(src)
	}

	if src.msg == nil {
		src.msg = log.New(io.Discard)
	}

	err = src.tbl.Validate()
	if err != nil {
		return nil, fmt.Errorf("rawsrc: invalid channel map: %w", err)
	}

	return src, nil
}

// Stats returns the current statistics of the source.
func (src *Source) Stats() Stats { return src.stats }

// Poll returns the next decoded trigger.
//
// Poll returns (frame, true, nil) for each decoded trigger, then
// (nil, true, nil) exactly once when all files have been processed, and
// (nil, false, nil) afterwards.
// With the abort error policy, the first failure is returned as
// (nil, false, err) and ends the stream.
func (src *Source) Poll() (*Frame, bool, error) {
	for {
		if src.state == drained {
			return nil, false, nil
		}

		if src.dec == nil {
			if src.cur >= len(src.cfg.Files) {
				src.state = drained
				src.msg.Infof(
					"end of stream: files=%d, failed=%d, triggers=%d",
					src.stats.Files, src.stats.Failed, src.stats.Triggers,
				)
				return nil, true, nil
			}

			err := src.open(src.cfg.Files[src.cur])
			if err != nil {
				if err := src.fail(err); err != nil {
					return nil, false, err
				}
				continue
			}
		}

		blk := new(raw.Block)
		err := src.dec.Decode(blk)
		switch {
		case err == nil:
			frame, err := src.frame(blk)
			if err != nil {
				if err := src.fail(err); err != nil {
					return nil, false, err
				}
				continue
			}
			return frame, true, nil

		case errors.Is(err, raw.ErrEndOfData):
			src.msg.Infof("file %q: %d triggers", src.cfg.Files[src.cur], src.idx)
			src.next()

		default:
			err = fmt.Errorf(
				"rawsrc: could not decode trigger %d of %q (word %d/%d): %w",
				src.idx, src.cfg.Files[src.cur], src.dec.Pos(), src.dec.Len(), err,
			)
			if err := src.fail(err); err != nil {
				return nil, false, err
			}
		}
	}
}

func (src *Source) frame(blk *raw.Block) (*Frame, error) {
	frame := &Frame{
		Ident:    src.ident,
		File:     src.cfg.Files[src.cur],
		Index:    src.idx,
		Trigger:  src.stats.Triggers,
		Block:    blk,
		Channels: src.tbl.Channels(src.cfg.Remap),
	}

	if src.cfg.Remap {
		out, err := src.tbl.Remap(blk)
		if err != nil {
			return nil, fmt.Errorf("rawsrc: could not remap trigger %d: %w", src.idx, err)
		}
		frame.Block = out
	}

	src.idx++
	src.stats.Triggers++
	return frame, nil
}

func (src *Source) open(fname string) error {
	src.stats.Files++
	src.idx = 0

	h, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("rawsrc: could not open raw file: %w", err)
	}
	defer h.Close()

	if h.Len()%2 != 0 {
		src.msg.Warnf("file %q: dropping trailing odd byte", fname)
	}

	src.ident, err = raw.ParseIdentity(fname)
	if err != nil {
		src.msg.Warnf("could not parse identity of %q: %+v", fname, err)
		src.ident = raw.Identity{}
	}

	src.dec = raw.NewDecoder(raw.Words(h.Bytes()), src.opts...)
	src.msg.Debugf("file %q: %d words", fname, src.dec.Len())
	return nil
}

func (src *Source) next() {
	src.dec = nil
	src.cur++
}

// fail applies the error policy to err.
func (src *Source) fail(err error) error {
	src.stats.Failed++
	src.next()

	switch src.cfg.OnError {
	case Abort:
		src.state = drained
		src.msg.Errorf("%+v", err)
		return err
	default:
		src.msg.Warnf("skipping file: %+v", err)
		return nil
	}
}
