// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"golang.org/x/xerrors"
)

// Framer locates package boundaries in a stream of words.
type Framer interface {
	// SeekNext returns the index one past the last word of the package
	// starting at word pos.
	// SeekNext returns ErrEndOfData when the end of that package could not
	// be found before the end of the stream, and ErrCorruptStream when
	// the header at pos is invalid.
	SeekNext(words []uint16, pos int) (int, error)
}

// FramerFrom returns the framing strategy with the provided name:
// "seq" (or "") for SeqFramer and "sync" for SyncFramer.
func FramerFrom(name string) (Framer, error) {
	switch name {
	case "", "seq":
		return SeqFramer{}, nil
	case "sync":
		return SyncFramer{}, nil
	default:
		return nil, xerrors.Errorf("raw: unknown framing strategy %q: %w", name, ErrConfig)
	}
}

// SeqFramer finds package boundaries using the continuity of the package
// sequence counter.
//
// The end of a package is the first word k, after its header, such that the
// 32-bit field at k is the successor of the package sequence counter and the
// 32-bit field at k+2 is zero.
// The stream is scanned word by word so that packages with a drifting length
// are still found.
// Payload data that happens to look like such a header is mistaken for a
// package boundary: this risk is not eliminated.
//
// When no such word exists, the first payload word k holding the successor
// counter with a nonzero field at k+2 ends the package: the successor header
// is then reported as corrupted when it is parsed.
type SeqFramer struct{}

func (SeqFramer) SeekNext(words []uint16, pos int) (int, error) {
	seq, err := checkHeader(words, pos)
	if err != nil {
		return pos, err
	}

	var (
		next = seq + 1
		bad  = -1
	)
	for k := pos + 4; k+4 <= len(words); k++ {
		if field(words, k) != next {
			continue
		}
		if field(words, k+2) == 0 {
			return k, nil
		}
		if bad < 0 && k >= pos+HeaderLen {
			bad = k
		}
	}
	if bad >= 0 {
		return bad, nil
	}
	return len(words), ErrEndOfData
}

// SyncFramer finds package boundaries by walking the sample rows of a
// package, each row starting with a 0xFACE or 0xFEED marker.
//
// SyncFramer handles the alternate format version of the stream, where
// headers always carry a continuation word.
// When the last row of a package is split, its last data word is stored in
// the continuation word of the next header and the next header starts one
// word before the end of that row.
type SyncFramer struct{}

func (SyncFramer) SeekNext(words []uint16, pos int) (int, error) {
	_, err := checkHeader(words, pos)
	if err != nil {
		return pos, err
	}

	k := pos + HeaderLen
	if k < len(words) && !IsSync(words[k]) {
		k++ // continuation word
	}

	rows := 0
	for k < len(words) && IsSync(words[k]) {
		k += RowLen
		rows++
	}

	switch {
	case k >= len(words):
		return len(words), ErrEndOfData
	case words[k] == 0:
		// complete last row, next header starts here.
		return k, nil
	case rows == 0:
		return pos, xerrors.Errorf(
			"raw: package at word %d: invalid word 0x%04x after header: %w",
			pos, words[k], ErrCorruptStream,
		)
	default:
		// split last row.
		return k - 1, nil
	}
}

// checkHeader checks the header starting at pos and returns its sequence
// counter.
func checkHeader(words []uint16, pos int) (uint32, error) {
	if pos < 0 || pos+4 > len(words) {
		return 0, ErrEndOfData
	}

	var (
		seq = field(words, pos)
		res = field(words, pos+2)
	)
	if res != 0 {
		return seq, xerrors.Errorf(
			"raw: package at word %d (seq=%d) has nonzero reserved field 0x%08x: %w",
			pos, seq, res, ErrCorruptStream,
		)
	}
	return seq, nil
}
