// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// DefaultUnknown holds the constant header words written by the board.
var DefaultUnknown = [4]uint16{0x1df4, 0x0001, 0x0003, 0x0000}

// Encoder writes synthetic raw streams, as produced by the board.
//
// Each package holds a header, a continuation word and a chunk of the
// sample rows of a link.
// When Split is set, a full package holds its last sample row but for its
// last data word, which is carried over in the continuation word of the
// next package.
//
// Encoded samples should lie within [16, 0xeff]: packed data words are then
// never zero nor equal to a sample row marker, so that framing can not be
// fooled by sample data.
type Encoder struct {
	Seq     uint32    // sequence counter of the next package
	Rows    int       // number of sample rows in a full package
	Split   bool      // whether rows are split across packages
	Unknown [4]uint16 // constant header words
	Marker  uint16    // sample row marker

	buf []uint16
}

// NewEncoder returns an encoder writing full packages of the nominal size.
func NewEncoder() *Encoder {
	return &Encoder{
		Seq:     1,
		Rows:    (DefaultPackageSize + 2 - 1) / RowLen,
		Unknown: DefaultUnknown,
		Marker:  syncFACE,
	}
}

// PackageSize returns the payload size of a full package, in words.
// Decoders of the encoded stream should use it as their nominal package size.
func (enc *Encoder) PackageSize() int {
	if enc.Split {
		return enc.Rows * RowLen
	}
	return 1 + enc.Rows*RowLen
}

// PackRow appends the sample row made of the NumChans samples of src to dst.
// PackRow is the inverse of UnpackRow.
func (enc *Encoder) PackRow(dst []uint16, src []int16) []uint16 {
	_ = src[NumChans-1]

	marker := enc.Marker
	if marker == 0 {
		marker = syncFACE
	}

	var data [RowLen - 1]uint16
	for _, g := range groups {
		col := src[g.col : g.col+4]
		w0, w1, w2 := Pack4(col[0], col[1], col[2], col[3])
		data[g.off+0] = w0
		data[g.off+1] = w1
		data[g.off+2] = w2
	}
	dst = append(dst, marker)
	return append(dst, data[:]...)
}

// Pack4 encodes 4 12-bit ADC samples into 3 words.
// Pack4 is the inverse of Unpack4.
func Pack4(a, b, c, d int16) (w0, w1, w2 uint16) {
	ua := uint16(a) & MaxADC
	ub := uint16(b) & MaxADC
	uc := uint16(c) & MaxADC
	ud := uint16(d) & MaxADC

	w0 = (uc&0x000f)<<12 | ud
	w1 = (ub&0x00ff)<<8 | uc>>4
	w2 = ua<<4 | ub>>8
	return w0, w1, w2
}

// EncodeLink appends the packages of the link made of the 32-column block
// blk to dst.
func (enc *Encoder) EncodeLink(dst []uint16, blk *Block) ([]uint16, error) {
	if blk.Cols != NumChans {
		return dst, xerrors.Errorf(
			"raw: invalid number of columns for a link (got=%d, want=%d): %w",
			blk.Cols, NumChans, ErrConfig,
		)
	}
	if enc.Rows <= 0 {
		return dst, xerrors.Errorf("raw: invalid number of rows per package %d: %w", enc.Rows, ErrConfig)
	}

	rows := enc.buf[:0]
	for i := 0; i < blk.Rows; i++ {
		rows = enc.PackRow(rows, blk.Row(i))
	}
	enc.buf = rows

	var (
		size = enc.PackageSize()
		beg  = 0
	)
	for {
		aligned := beg%RowLen == 0
		n := size
		if aligned {
			n--
		}
		end := min(beg+n, len(rows))

		dst = enc.appendHeader(dst)
		if aligned {
			dst = append(dst, 0)
		}
		dst = append(dst, rows[beg:end]...)
		if end-beg < n {
			return dst, nil
		}
		beg = end
	}
}

// EncodeTrigger appends the packages of the 4 links of the 128-column block
// blk to dst.
func (enc *Encoder) EncodeTrigger(dst []uint16, blk *Block) ([]uint16, error) {
	if blk.Cols != TriggerChans {
		return dst, xerrors.Errorf(
			"raw: invalid number of columns for a trigger (got=%d, want=%d): %w",
			blk.Cols, TriggerChans, ErrConfig,
		)
	}

	lnk := NewBlock(blk.Rows, NumChans)
	for i := 0; i < NumLinks; i++ {
		for j := 0; j < blk.Rows; j++ {
			beg := i * NumChans
			copy(lnk.Row(j), blk.Row(j)[beg:beg+NumChans])
		}
		var err error
		dst, err = enc.EncodeLink(dst, lnk)
		if err != nil {
			return dst, xerrors.Errorf("raw: could not encode link %d: %w", i, err)
		}
	}
	return dst, nil
}

func (enc *Encoder) appendHeader(dst []uint16) []uint16 {
	seq := enc.Seq
	enc.Seq++
	dst = append(dst, uint16(seq>>16), uint16(seq), 0, 0)
	return append(dst, enc.Unknown[:]...)
}

// WriteWords writes words to w as big-endian 16-bit words.
func WriteWords(w io.Writer, words []uint16) error {
	p := make([]byte, 2*len(words))
	for i, v := range words {
		binary.BigEndian.PutUint16(p[2*i:], v)
	}
	_, err := w.Write(p)
	if err != nil {
		return xerrors.Errorf("raw: could not write words: %w", err)
	}
	return nil
}
