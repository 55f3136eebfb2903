// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestUnpack4(t *testing.T) {
	a, b, c, d := Unpack4(0x1234, 0x5678, 0x9abc)
	for _, tc := range []struct {
		name      string
		got, want int16
	}{
		{"a", a, 0x9ab},
		{"b", b, 0xc56},
		{"c", c, 0x781},
		{"d", d, 0x234},
	} {
		if tc.got != tc.want {
			t.Fatalf("invalid %s: got=0x%03x, want=0x%03x", tc.name, tc.got, tc.want)
		}
	}
}

func TestUnpack4Range(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var (
			w0 = rapid.Uint16().Draw(t, "w0")
			w1 = rapid.Uint16().Draw(t, "w1")
			w2 = rapid.Uint16().Draw(t, "w2")
		)
		a, b, c, d := Unpack4(w0, w1, w2)
		for _, v := range []int16{a, b, c, d} {
			assert.GreaterOrEqual(t, v, int16(0))
			assert.LessOrEqual(t, v, int16(MaxADC))
		}

		// 48 bits in, 48 bits out.
		x0, x1, x2 := Pack4(a, b, c, d)
		assert.Equal(t, []uint16{w0, w1, w2}, []uint16{x0, x1, x2})
	})
}

func TestUnpackRow(t *testing.T) {
	for _, tc := range []struct {
		off int
		col int
	}{
		{0, 4},
		{3, 0},
		{6, 12},
		{9, 8},
		{12, 20},
		{15, 16},
		{18, 28},
		{21, 24},
	} {
		row := make([]uint16, RowLen)
		row[0] = 0xface
		row[1+tc.off+0] = 0x1234
		row[1+tc.off+1] = 0x5678
		row[1+tc.off+2] = 0x9abc

		want := make([]int16, NumChans)
		copy(want[tc.col:], []int16{0x9ab, 0xc56, 0x781, 0x234})

		got := make([]int16, NumChans)
		UnpackRow(got, row)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid row for group at offset %d:\ngot= %#v\nwant=%#v\n", tc.off, got, want)
		}
	}
}

func TestUnpackRowFiller(t *testing.T) {
	row := make([]uint16, RowLen)
	for i := range row {
		row[i] = uint16(i * 0x0101)
	}
	ref := make([]int16, NumChans)
	UnpackRow(ref, row)

	for _, filler := range []uint16{0, 0xface, 0xfeed, 0xffff} {
		row[0] = filler
		got := make([]int16, NumChans)
		UnpackRow(got, row)
		if !reflect.DeepEqual(got, ref) {
			t.Fatalf("filler 0x%04x modified the row:\ngot= %#v\nwant=%#v\n", filler, got, ref)
		}
	}
}

func TestUnpackLink(t *testing.T) {
	enc := NewEncoder()

	want := NewBlock(3, NumChans)
	for i := range want.Data {
		want.Data[i] = int16(i % (MaxADC + 1))
	}

	var words []uint16
	for i := 0; i < want.Rows; i++ {
		words = enc.PackRow(words, want.Row(i))
	}
	// trailing partial row.
	words = append(words, 0xface, 1, 2, 3)

	lnk := Link{Words: words}
	if got, want := lnk.Rows(), 3; got != want {
		t.Fatalf("invalid number of rows: got=%d, want=%d", got, want)
	}
	if got, want := lnk.Residual(), 4; got != want {
		t.Fatalf("invalid residual: got=%d, want=%d", got, want)
	}

	got := UnpackLink(lnk)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid link block:\ngot= %v\nwant=%v\n", got, want)
	}
}

func TestPackRowRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		enc := NewEncoder()
		if rapid.Bool().Draw(t, "feed") {
			enc.Marker = 0xfeed
		}
		want := make([]int16, NumChans)
		for i := range want {
			want[i] = rapid.Int16Range(0, MaxADC).Draw(t, "adc")
		}

		row := enc.PackRow(nil, want)
		assert.Len(t, row, RowLen)
		assert.True(t, IsSync(row[0]))

		got := make([]int16, NumChans)
		UnpackRow(got, row)
		assert.Equal(t, want, got)
	})
}
