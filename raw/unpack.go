// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

// Unpack4 decodes a group of 3 words into 4 12-bit ADC samples.
func Unpack4(w0, w1, w2 uint16) (a, b, c, d int16) {
	d = int16(w0 & 0x0fff)
	c = int16((w1&0x00ff)<<4 | (w0&0xf000)>>12)
	b = int16((w2&0x000f)<<8 | (w1&0xff00)>>8)
	a = int16((w2 & 0xfff0) >> 4)
	return a, b, c, d
}

// groups maps the data offset of each 3-word group of a sample row to the
// first column it fills.
// Adjacent 4-channel groups are swapped, following the multiplexing order
// of the ADC.
var groups = [8]struct{ off, col int }{
	{0, 4},
	{3, 0},
	{6, 12},
	{9, 8},
	{12, 20},
	{15, 16},
	{18, 28},
	{21, 24},
}

// UnpackRow decodes the sample row src into dst.
// src must hold at least RowLen words, dst at least NumChans samples.
// The leading filler word of the row is ignored.
func UnpackRow(dst []int16, src []uint16) {
	_ = src[RowLen-1]
	_ = dst[NumChans-1]

	data := src[1:RowLen]
	for _, g := range groups {
		a, b, c, d := Unpack4(data[g.off], data[g.off+1], data[g.off+2])
		col := dst[g.col : g.col+4 : g.col+4]
		col[0] = a
		col[1] = b
		col[2] = c
		col[3] = d
	}
}

// UnpackLink decodes the sample rows of a link into a new 32-column block.
// A trailing partial row is not decoded.
func UnpackLink(lnk Link) *Block {
	blk := NewBlock(0, NumChans)
	unpackInto(blk, lnk.Words)
	return blk
}

func unpackInto(dst *Block, words []uint16) {
	rows := len(words) / RowLen
	dst.Resize(rows, NumChans)
	for i := 0; i < rows; i++ {
		UnpackRow(dst.Row(i), words[i*RowLen:(i+1)*RowLen])
	}
}
