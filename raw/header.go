// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"golang.org/x/xerrors"
)

// Header is a package header.
type Header struct {
	Seq     uint32    // package sequence counter
	Res     uint32    // reserved, always zero
	Unknown [4]uint16 // constant across a file. last one is zero.

	// Cont is the continuation word, the first word after the header.
	// When a sample row is split across two packages, it holds the last
	// data word of that row. It is zero otherwise.
	Cont uint16
}

// ParseHeader parses the package header starting at word pos.
func ParseHeader(words []uint16, pos int) (Header, error) {
	if pos < 0 || pos+2 > len(words) {
		return Header{}, xerrors.Errorf("raw: could not read header at word %d: %w", pos, ErrEndOfData)
	}
	return ResumeHeader(field(words, pos), words, pos+2)
}

// ResumeHeader parses the remainder of a package header whose sequence
// counter has already been read.
// pos is the index of the first word following the sequence counter.
func ResumeHeader(seq uint32, words []uint16, pos int) (Header, error) {
	const n = HeaderLen - 2 + 1 // res, unknowns and continuation word
	if pos < 0 || pos+n > len(words) {
		return Header{Seq: seq}, xerrors.Errorf(
			"raw: could not read header (seq=%d) at word %d: %w",
			seq, pos, ErrEndOfData,
		)
	}

	hdr := Header{
		Seq: seq,
		Res: field(words, pos),
	}
	copy(hdr.Unknown[:], words[pos+2:pos+6])
	hdr.Cont = words[pos+6]

	if hdr.Res != 0 {
		return hdr, xerrors.Errorf(
			"raw: header (seq=%d) has nonzero reserved field 0x%08x: %w",
			hdr.Seq, hdr.Res, ErrCorruptStream,
		)
	}
	return hdr, nil
}
