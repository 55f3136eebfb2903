// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"errors"

	"golang.org/x/xerrors"
)

// Decoder decodes triggers from a stream of words.
//
// Decoder owns a cursor into the stream. The cursor is only advanced by
// Decode, NextLink and NextPackage, and is left at the failure point when
// an error occurs.
type Decoder struct {
	words []uint16
	pos   int // cursor
	n     int // number of decoded triggers

	framer  Framer
	nominal int
	maxRows int

	links [NumLinks]*Block
}

// Option configures a Decoder.
type Option func(dec *Decoder)

// WithFramer sets the framing strategy of the decoder.
func WithFramer(f Framer) Option {
	return func(dec *Decoder) {
		dec.framer = f
	}
}

// WithPackageSize sets the nominal payload size of a full package, in words.
func WithPackageSize(n int) Option {
	return func(dec *Decoder) {
		dec.nominal = n
	}
}

// WithMaxRows sets the maximum number of sample rows of a link.
// A negative or zero value disables the check.
func WithMaxRows(n int) Option {
	return func(dec *Decoder) {
		dec.maxRows = n
	}
}

// NewDecoder creates a new decoder reading triggers from words.
func NewDecoder(words []uint16, opts ...Option) *Decoder {
	dec := &Decoder{
		words:   words,
		framer:  SeqFramer{},
		nominal: DefaultPackageSize,
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(dec)
	}
	for i := range dec.links {
		dec.links[i] = NewBlock(0, NumChans)
	}
	return dec
}

// Pos returns the current position of the cursor, in words.
func (dec *Decoder) Pos() int { return dec.pos }

// Len returns the number of words in the stream.
func (dec *Decoder) Len() int { return len(dec.words) }

// Triggers returns the number of triggers decoded so far.
func (dec *Decoder) Triggers() int { return dec.n }

// Seek moves the cursor to word pos.
func (dec *Decoder) Seek(pos int) error {
	if pos < 0 || pos > len(dec.words) {
		return xerrors.Errorf(
			"raw: invalid seek position %d (len=%d): %w",
			pos, len(dec.words), ErrConfig,
		)
	}
	dec.pos = pos
	return nil
}

// NextPackage reads the header of the package at the cursor and moves the
// cursor to the next package.
// NextPackage returns the header and the span [beg, end) of the package.
// The last package of the stream spans up to the end of the stream and is
// reported with ErrEndOfData.
func (dec *Decoder) NextPackage() (hdr Header, beg, end int, err error) {
	beg = dec.pos
	end, err = dec.framer.SeekNext(dec.words, beg)
	if err != nil && !errors.Is(err, ErrEndOfData) {
		return hdr, beg, end, err
	}
	hdr, herr := ParseHeader(dec.words, beg)
	if herr != nil {
		return hdr, beg, end, herr
	}
	dec.pos = end
	return hdr, beg, end, err
}

// NextLink assembles the link at the cursor and moves the cursor past it.
func (dec *Decoder) NextLink() (Link, error) {
	lnk, next, err := makeLink(dec.framer, dec.words, dec.pos, dec.nominal, dec.maxRows)
	dec.pos = next
	return lnk, err
}

// Decode decodes the next trigger into blk.
//
// Decode returns ErrEndOfData when the stream is cleanly exhausted.
// ErrShortRead is returned when the stream ends in the middle of a trigger,
// with the cursor left at the unterminated package, if any.
// The last link of a trigger may be truncated.
// ErrCorruptStream and ErrExceededMaxRows are returned (wrapped) when the
// stream is corrupted, with the cursor left at the offending package.
func (dec *Decoder) Decode(blk *Block) error {
	for i := range dec.links {
		lnk, next, err := makeLink(dec.framer, dec.words, dec.pos, dec.nominal, dec.maxRows)
		dec.pos = next
		if err != nil {
			return xerrors.Errorf(
				"raw: could not read link %d of trigger %d (word %d): %w",
				i, dec.n, next, err,
			)
		}

		if lnk.Outcome == Truncated {
			switch {
			case i == 0 && lnk.Packages == 0 && next == len(dec.words):
				return ErrEndOfData
			case i < NumLinks-1, lnk.Packages == 0:
				return xerrors.Errorf(
					"raw: stream ended in link %d of trigger %d (packages=%d): %w",
					i, dec.n, lnk.Packages, ErrShortRead,
				)
			}
		}

		unpackInto(dec.links[i], lnk.Words)
	}

	assembleInto(blk, dec.links)
	dec.n++
	return nil
}
