// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chmap maps the electronics channels of the pcbro readout board
// to physical detector channels.
package chmap // import "github.com/go-lpc/pcbro/chmap"

import (
	"io"
	"os"

	"github.com/go-lpc/pcbro/raw"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Table maps an electronics channel index (0-based) to a physical
// channel number (1-based).
type Table [raw.TriggerChans]int

// Default returns the default channel map of the 50L readout.
//
// Within each link, even electronics channels are wired to the lower half of
// the strips, in increasing order, and odd electronics channels to the upper
// half, in decreasing order.
func Default() Table {
	var tbl Table
	for e := range tbl {
		var (
			link = e / raw.NumChans
			ch   = e % raw.NumChans
			phys = ch/2 + 1
		)
		if ch%2 == 1 {
			phys = raw.NumChans - ch/2
		}
		tbl[e] = link*raw.NumChans + phys
	}
	return tbl
}

// Identity returns the table mapping each electronics channel to itself.
func Identity() Table {
	var tbl Table
	for i := range tbl {
		tbl[i] = i + 1
	}
	return tbl
}

// Validate checks the table is a bijection over [1, 128].
func (tbl *Table) Validate() error {
	var seen [raw.TriggerChans]int
	for e, ch := range tbl {
		if ch < 1 || ch > raw.TriggerChans {
			return xerrors.Errorf(
				"chmap: electronics channel %d mapped to invalid channel %d: %w",
				e, ch, raw.ErrConfig,
			)
		}
		if prev := seen[ch-1]; prev != 0 {
			return xerrors.Errorf(
				"chmap: channel %d mapped from electronics channels %d and %d: %w",
				ch, prev-1, e, raw.ErrConfig,
			)
		}
		seen[ch-1] = e + 1
	}
	return nil
}

// Remap returns a new trigger block, with the column of electronics
// channel e of src moved to the column of its physical channel.
func (tbl *Table) Remap(src *raw.Block) (*raw.Block, error) {
	dst := raw.NewBlock(0, 0)
	err := tbl.RemapInto(dst, src)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// RemapInto remaps src into dst, reusing the storage of dst.
func (tbl *Table) RemapInto(dst, src *raw.Block) error {
	if src.Cols != raw.TriggerChans {
		return xerrors.Errorf(
			"chmap: invalid number of columns (got=%d, want=%d): %w",
			src.Cols, raw.TriggerChans, raw.ErrConfig,
		)
	}
	err := tbl.Validate()
	if err != nil {
		return err
	}

	dst.Resize(src.Rows, src.Cols)
	for i := 0; i < src.Rows; i++ {
		var (
			in  = src.Row(i)
			out = dst.Row(i)
		)
		for e, ch := range tbl {
			out[ch-1] = in[e]
		}
	}
	return nil
}

// Channels returns the physical channel numbers of the columns of a block.
// When remapped is true, columns are already ordered by physical channel.
func (tbl *Table) Channels(remapped bool) Table {
	if remapped {
		return Identity()
	}
	return *tbl
}

type file struct {
	Channels []int `yaml:"channels"`
}

// Load loads a channel map from the named YAML file.
func Load(fname string) (Table, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Table{}, xerrors.Errorf("chmap: could not open channel map file: %w", err)
	}
	defer f.Close()

	tbl, err := Decode(f)
	if err != nil {
		return tbl, xerrors.Errorf("chmap: could not load %q: %w", fname, err)
	}
	return tbl, nil
}

// Decode decodes a YAML channel map from r.
func Decode(r io.Reader) (Table, error) {
	var (
		tbl Table
		doc file
	)
	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return tbl, xerrors.Errorf("chmap: could not decode channel map: %w", err)
	}
	if len(doc.Channels) != len(tbl) {
		return tbl, xerrors.Errorf(
			"chmap: invalid number of channels (got=%d, want=%d): %w",
			len(doc.Channels), len(tbl), raw.ErrConfig,
		)
	}
	copy(tbl[:], doc.Channels)

	err = tbl.Validate()
	if err != nil {
		return tbl, err
	}
	return tbl, nil
}

// Encode writes the channel map as YAML to w.
func (tbl *Table) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(file{Channels: tbl[:]})
	if err != nil {
		return xerrors.Errorf("chmap: could not encode channel map: %w", err)
	}
	err = enc.Close()
	if err != nil {
		return xerrors.Errorf("chmap: could not close channel map encoder: %w", err)
	}
	return nil
}
