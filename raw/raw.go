// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package raw decodes the binary stream of the pcbro front-end readout board
// into per-channel 12-bit ADC waveforms.
//
// A raw file is a sequence of big-endian 16-bit words, grouped in packages.
// Each package starts with an 8-word header (sequence counter, reserved
// field and 4 constant words) followed by a payload.
// The payloads of consecutive packages are concatenated into a link: one of
// the 4 32-channel sub-streams of the board.
// A link is terminated by the first package whose payload is shorter than the
// nominal package size.
// Four links make a trigger, a 128-channel block of samples.
package raw // import "github.com/go-lpc/pcbro/raw"

import (
	"errors"
)

const (
	HeaderLen = 8  // package header length, in words
	RowLen    = 25 // sample row length, in words (1 filler word + 24 data words)

	NumChans     = 32 // number of channels in a link
	NumLinks     = 4  // number of links in a trigger
	TriggerChans = NumLinks * NumChans

	// DefaultPackageSize is the nominal payload size of a full package,
	// in words.
	// Packages with a smaller payload terminate a link.
	DefaultPackageSize = 0x1df4/2 - 10

	// DefaultMaxRows is the default maximum number of sample rows a
	// link may hold before the stream is deemed corrupted.
	DefaultMaxRows = 8192

	// MaxADC is the maximum value of a 12-bit ADC sample.
	MaxADC = 0x0fff
)

const (
	syncFACE = 0xface // sample row marker
	syncFEED = 0xfeed // sample row marker (0xFEED variant)
)

var (
	// ErrEndOfData is returned when the stream is cleanly exhausted.
	ErrEndOfData = errors.New("raw: end of data")

	// ErrCorruptStream is returned when a package header has a nonzero
	// reserved field.
	ErrCorruptStream = errors.New("raw: corrupt stream")

	// ErrShortRead is returned when the stream ends before the 4 links of
	// a trigger could be read.
	ErrShortRead = errors.New("raw: short read")

	// ErrExceededMaxRows is returned when a link holds more sample rows
	// than the configured maximum.
	ErrExceededMaxRows = errors.New("raw: exceeded max rows")

	// ErrConfig is returned for invalid decoder configurations.
	ErrConfig = errors.New("raw: invalid configuration")
)

// IsSync returns whether w is a sample row marker.
func IsSync(w uint16) bool {
	return w == syncFACE || w == syncFEED
}
