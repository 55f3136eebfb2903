// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"errors"

	"golang.org/x/xerrors"
)

// Outcome describes how a link was terminated.
type Outcome uint8

const (
	// Complete links end with a package shorter than the nominal size.
	Complete Outcome = iota
	// Truncated links end with the stream.
	Truncated
)

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case Truncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Link is the concatenation of the payloads of consecutive packages.
type Link struct {
	Words    []uint16 // concatenated payload words
	Packages int      // number of packages in the link
	Outcome  Outcome

	tail int // payload length of the last package
}

// Rows returns the number of complete sample rows in the link.
func (lnk Link) Rows() int {
	return len(lnk.Words) / RowLen
}

// Residual returns the number of trailing words that do not make up a
// complete sample row.
func (lnk Link) Residual() int {
	return len(lnk.Words) % RowLen
}

// AppendPayload appends the payload of the package spanning words [beg,end)
// to dst and returns the extended slice.
//
// The payload starts right after the header, except when its first word is
// zero and its second word is a sample row marker: the zero continuation
// word is then dropped.
// A nonzero continuation word is kept, completing the sample row split
// across the previous package.
func AppendPayload(dst, words []uint16, beg, end int) []uint16 {
	start := beg + HeaderLen
	if start+1 < end && words[start] == 0 && IsSync(words[start+1]) {
		start++
	}
	if start >= end {
		return dst
	}
	return append(dst, words[start:end]...)
}

// MakeLink assembles the link starting at word pos.
// MakeLink returns the link and the index of the first word after it.
//
// The link is complete when a package with a payload shorter than nominal
// words is found.
// When the stream ends first, the link is truncated and the remaining words
// are appended as its last package, unless they hold at least nominal payload
// words: MakeLink then returns the position of that unterminated package.
// On error, MakeLink returns the position of the offending package.
func MakeLink(f Framer, words []uint16, pos, nominal int) (Link, int, error) {
	return makeLink(f, words, pos, nominal, 0)
}

func makeLink(f Framer, words []uint16, pos, nominal, maxRows int) (Link, int, error) {
	var lnk Link
	for {
		end, err := f.SeekNext(words, pos)
		switch {
		case err == nil:
			// ok.
		case errors.Is(err, ErrEndOfData):
			lnk.Outcome = Truncated
			tail := len(words) - (pos + HeaderLen)
			if tail >= nominal {
				// unterminated full package, left unread.
				return lnk, pos, nil
			}
			if tail > 0 {
				lnk.Words = AppendPayload(lnk.Words, words, pos, len(words))
				lnk.Packages++
				lnk.tail = tail
			}
			if err := checkRows(lnk, pos, maxRows); err != nil {
				return lnk, pos, err
			}
			return lnk, len(words), nil
		default:
			return lnk, pos, err
		}

		lnk.Words = AppendPayload(lnk.Words, words, pos, end)
		lnk.Packages++
		lnk.tail = end - (pos + HeaderLen)
		if err := checkRows(lnk, pos, maxRows); err != nil {
			return lnk, pos, err
		}

		if lnk.tail < nominal {
			lnk.Outcome = Complete
			return lnk, end, nil
		}
		pos = end
	}
}

func checkRows(lnk Link, pos, max int) error {
	if max <= 0 || lnk.Rows() <= max {
		return nil
	}
	return xerrors.Errorf(
		"raw: link has %d rows (max=%d) at package %d (word %d): %w",
		lnk.Rows(), max, lnk.Packages, pos, ErrExceededMaxRows,
	)
}
