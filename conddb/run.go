// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"fmt"
	"time"

	"github.com/go-lpc/pcbro/raw"
)

// Run holds the conditions of a data taking run.
type Run struct {
	ID          uint64    `json:"identifier"`
	Board       int       `json:"board"`
	Step        int       `json:"step"`
	Module      int       `json:"module"`
	Start       time.Time `json:"start"`
	Framing     string    `json:"framing"`      // seq or sync
	PackageSize int       `json:"package_size"` // nominal package payload size, in words
}

// Match returns whether the raw file with the provided identity was taken
// during this run.
func (run Run) Match(id raw.Identity) bool {
	return run.Board == id.Board &&
		run.Step == id.Step &&
		run.Module == id.Module
}

// Options returns the decoder options for the raw files of this run.
func (run Run) Options() ([]raw.Option, error) {
	f, err := raw.FramerFrom(run.Framing)
	if err != nil {
		return nil, fmt.Errorf("conddb: invalid framing for run %d: %w", run.ID, err)
	}
	opts := []raw.Option{raw.WithFramer(f)}
	if run.PackageSize > 0 {
		opts = append(opts, raw.WithPackageSize(run.PackageSize))
	}
	return opts, nil
}
