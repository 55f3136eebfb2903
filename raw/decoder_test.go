// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var equate = cmpopts.EquateEmpty()

// genTrigger returns a trigger block with samples within [16, 0xeff].
func genTrigger(rows, seed int) *Block {
	blk := NewBlock(rows, TriggerChans)
	for i := range blk.Data {
		blk.Data[i] = int16(16 + (seed*7919+i*31)%0xee0)
	}
	return blk
}

func encodeTrigger(t *testing.T, enc *Encoder, dst []uint16, blk *Block) []uint16 {
	t.Helper()
	o, err := enc.EncodeTrigger(dst, blk)
	if err != nil {
		t.Fatalf("could not encode trigger: %+v", err)
	}
	return o
}

func TestDecoderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		rows  int
		split bool
		f     Framer
	}{
		{rows: 153, split: false, f: SeqFramer{}},
		{rows: 153, split: true, f: SeqFramer{}},
		{rows: 153, split: false, f: SyncFramer{}},
		{rows: 153, split: true, f: SyncFramer{}},
		{rows: 3, split: false, f: SeqFramer{}},
		{rows: 3, split: true, f: SyncFramer{}},
	} {
		t.Run(fmt.Sprintf("%T-rows=%d-split=%v", tc.f, tc.rows, tc.split), func(t *testing.T) {
			enc := NewEncoder()
			enc.Rows = tc.rows
			enc.Split = tc.split

			var (
				words []uint16
				want  []*Block
			)
			for i, n := range []int{500, 1, 0, 306, 20} {
				blk := genTrigger(n, i)
				want = append(want, blk)
				words = encodeTrigger(t, enc, words, blk)
			}

			dec := NewDecoder(words, WithFramer(tc.f), WithPackageSize(enc.PackageSize()))
			for i := range want {
				var got Block
				err := dec.Decode(&got)
				if err != nil {
					t.Fatalf("could not decode trigger %d: %+v", i, err)
				}
				if !cmp.Equal(&got, want[i], equate) {
					t.Fatalf("invalid trigger %d:\n%s", i, cmp.Diff(want[i], &got, equate))
				}
			}
			if got, want := dec.Triggers(), len(want); got != want {
				t.Fatalf("invalid number of triggers: got=%d, want=%d", got, want)
			}

			var blk Block
			err := dec.Decode(&blk)
			if !errors.Is(err, ErrEndOfData) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrEndOfData)
			}
			if got, want := dec.Pos(), dec.Len(); got != want {
				t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestDecoderDefaultPackageSize(t *testing.T) {
	enc := NewEncoder()
	blk := genTrigger(400, 1)
	words := encodeTrigger(t, enc, nil, blk)

	var got Block
	err := NewDecoder(words).Decode(&got)
	if err != nil {
		t.Fatalf("could not decode trigger: %+v", err)
	}
	if !cmp.Equal(&got, blk, equate) {
		t.Fatalf("invalid trigger:\n%s", cmp.Diff(blk, &got))
	}
}

func TestDecoderProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		enc := NewEncoder()
		enc.Rows = rapid.IntRange(1, 4).Draw(t, "rows-per-package")
		enc.Split = rapid.Bool().Draw(t, "split")

		var f Framer = SeqFramer{}
		if rapid.Bool().Draw(t, "sync") {
			f = SyncFramer{}
		}

		var (
			words []uint16
			want  []*Block
			ntrig = rapid.IntRange(1, 3).Draw(t, "triggers")
		)
		for i := 0; i < ntrig; i++ {
			var links [NumLinks]*Block
			for j := range links {
				rows := rapid.IntRange(0, 12).Draw(t, "rows")
				links[j] = NewBlock(rows, NumChans)
				for k := range links[j].Data {
					links[j].Data[k] = rapid.Int16Range(16, 0xeff).Draw(t, "adc")
				}
				var err error
				words, err = enc.EncodeLink(words, links[j])
				require.NoError(t, err)
			}
			want = append(want, Assemble(links))
		}

		decode := func() []*Block {
			var (
				dec = NewDecoder(words, WithFramer(f), WithPackageSize(enc.PackageSize()))
				o   []*Block
			)
			for {
				blk := new(Block)
				err := dec.Decode(blk)
				if errors.Is(err, ErrEndOfData) {
					assert.Equal(t, dec.Len(), dec.Pos())
					return o
				}
				require.NoError(t, err)
				o = append(o, blk)
			}
		}

		got := decode()
		require.Len(t, got, len(want))
		for i := range want {
			assert.True(t, cmp.Equal(got[i], want[i], equate), "trigger %d:\n%s", i, cmp.Diff(want[i], got[i], equate))
		}

		// determinism.
		again := decode()
		assert.True(t, cmp.Equal(got, again, equate))
	})
}

func TestDecoderShortRead(t *testing.T) {
	enc := NewEncoder()
	enc.Rows = 2
	full := encodeTrigger(t, enc, nil, genTrigger(7, 1))

	// locate link boundaries.
	var (
		dec   = NewDecoder(full, WithPackageSize(enc.PackageSize()))
		links []int
	)
	for i := 0; i < NumLinks; i++ {
		links = append(links, dec.Pos())
		_, err := dec.NextLink()
		if err != nil {
			t.Fatalf("could not read link %d: %+v", i, err)
		}
	}

	for _, tc := range []struct {
		name string
		n    int
		pos  int
	}{
		// unterminated full packages are left unread.
		{"mid-link-0", links[0] + HeaderLen + enc.PackageSize() + 3, links[0]},
		{"after-link-0", links[1], links[1]},
		{"after-link-2", links[3], links[3]},
		{"mid-link-3", links[3] + HeaderLen + enc.PackageSize(), links[3]},
	} {
		t.Run(tc.name, func(t *testing.T) {
			words := full[:tc.n]
			dec := NewDecoder(words, WithPackageSize(enc.PackageSize()))
			var blk Block
			err := dec.Decode(&blk)
			if !errors.Is(err, ErrShortRead) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrShortRead)
			}
			if got, want := dec.Pos(), tc.pos; got != want {
				t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestDecoderTruncatedLastLink(t *testing.T) {
	enc := NewEncoder()
	enc.Rows = 2
	full := encodeTrigger(t, enc, nil, genTrigger(7, 1))
	beg := len(full)
	full = encodeTrigger(t, enc, full, genTrigger(7, 2))

	// 2 full packages of the last link of the second trigger.
	var (
		dec   = NewDecoder(full, WithPackageSize(enc.PackageSize()))
		blk   Block
		links []int
	)
	err := dec.Decode(&blk)
	if err != nil {
		t.Fatalf("could not decode first trigger: %+v", err)
	}
	for i := 0; i < NumLinks; i++ {
		links = append(links, dec.Pos())
		_, err := dec.NextLink()
		if err != nil {
			t.Fatalf("could not read link %d: %+v", i, err)
		}
	}
	if links[0] != beg {
		t.Fatalf("invalid trigger start: got=%d, want=%d", links[0], beg)
	}

	for _, tc := range []struct {
		name string
		n    int
		rows int
		pos  int
	}{
		{"short-tail", links[3] + 2*(HeaderLen+enc.PackageSize()) + HeaderLen + 1 + RowLen, 5, -1},
		{"nominal-tail", links[3] + 2*(HeaderLen+enc.PackageSize()), 2, links[3] + HeaderLen + enc.PackageSize()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			words := full[:tc.n]
			dec := NewDecoder(words, WithPackageSize(enc.PackageSize()))
			err := dec.Seek(beg)
			if err != nil {
				t.Fatalf("could not seek: %+v", err)
			}
			var blk Block
			err = dec.Decode(&blk)
			if err != nil {
				t.Fatalf("could not decode truncated trigger: %+v", err)
			}
			if got, want := blk.Rows, 7; got != want {
				t.Fatalf("invalid number of rows: got=%d, want=%d", got, want)
			}
			last := blk.Col(nil, TriggerChans-1)
			if last[tc.rows-1] == 0 {
				t.Fatalf("missing sample at row %d of link 3", tc.rows-1)
			}
			for i, v := range last[tc.rows:] {
				if v != 0 {
					t.Fatalf("invalid fill value at row %d: got=%d, want=0", tc.rows+i, v)
				}
			}

			pos := tc.pos
			if pos < 0 {
				pos = len(words)
			}
			if got, want := dec.Pos(), pos; got != want {
				t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
			}

			err = dec.Decode(&blk)
			switch {
			case tc.pos < 0:
				if !errors.Is(err, ErrEndOfData) {
					t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrEndOfData)
				}
			default:
				if !errors.Is(err, ErrShortRead) {
					t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrShortRead)
				}
				if got, want := dec.Pos(), tc.pos; got != want {
					t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
				}
			}
		})
	}
}

func TestDecoderEmpty(t *testing.T) {
	for _, words := range [][]uint16{
		nil,
		{0, 1, 0},
		mkpkg(nil, 1)[:HeaderLen],
	} {
		dec := NewDecoder(words)
		var blk Block
		err := dec.Decode(&blk)
		if err != ErrEndOfData {
			t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrEndOfData)
		}
	}
}

func TestDecoderCorrupt(t *testing.T) {
	for _, f := range []Framer{SeqFramer{}, SyncFramer{}} {
		t.Run(fmt.Sprintf("%T", f), func(t *testing.T) {
			enc := NewEncoder()
			enc.Rows = 2
			words := encodeTrigger(t, enc, nil, genTrigger(5, 1))
			words[3] ^= 0x0010

			dec := NewDecoder(words, WithFramer(f), WithPackageSize(enc.PackageSize()))
			var blk Block
			err := dec.Decode(&blk)
			if !errors.Is(err, ErrCorruptStream) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrCorruptStream)
			}
			if got, want := dec.Pos(), 0; got != want {
				t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
			}
		})
	}

	for _, f := range []Framer{SeqFramer{}, SyncFramer{}} {
		t.Run(fmt.Sprintf("%T-second-trigger", f), func(t *testing.T) {
			enc := NewEncoder()
			enc.Rows = 2
			words := encodeTrigger(t, enc, nil, genTrigger(5, 1))
			beg := len(words)
			words = encodeTrigger(t, enc, words, genTrigger(5, 2))
			end := len(words)
			words = encodeTrigger(t, enc, words, genTrigger(5, 3))
			words[beg+2] = 0x8000

			want := genTrigger(5, 1)
			dec := NewDecoder(words, WithFramer(f), WithPackageSize(enc.PackageSize()))
			var blk Block
			err := dec.Decode(&blk)
			if err != nil {
				t.Fatalf("could not decode first trigger: %+v", err)
			}
			if !cmp.Equal(&blk, want, equate) {
				t.Fatalf("invalid first trigger:\n%s", cmp.Diff(want, &blk, equate))
			}
			if got, want := dec.Pos(), beg; got != want {
				t.Fatalf("invalid cursor after first trigger: got=%d, want=%d", got, want)
			}

			err = dec.Decode(&blk)
			if !errors.Is(err, ErrCorruptStream) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrCorruptStream)
			}
			if got, want := dec.Pos(), beg; got != want {
				t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
			}

			// resume after the corrupted trigger.
			err = dec.Seek(end)
			if err != nil {
				t.Fatalf("could not seek: %+v", err)
			}
			err = dec.Decode(&blk)
			if err != nil {
				t.Fatalf("could not decode last trigger: %+v", err)
			}
			want = genTrigger(5, 3)
			if !cmp.Equal(&blk, want, equate) {
				t.Fatalf("invalid last trigger:\n%s", cmp.Diff(want, &blk, equate))
			}
			err = dec.Decode(&blk)
			if !errors.Is(err, ErrEndOfData) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrEndOfData)
			}
		})
	}
}

func TestDecoderMaxRows(t *testing.T) {
	enc := NewEncoder()
	enc.Rows = 2
	words := encodeTrigger(t, enc, nil, genTrigger(9, 1))

	dec := NewDecoder(words, WithPackageSize(enc.PackageSize()), WithMaxRows(8))
	var blk Block
	err := dec.Decode(&blk)
	if !errors.Is(err, ErrExceededMaxRows) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrExceededMaxRows)
	}

	dec = NewDecoder(words, WithPackageSize(enc.PackageSize()), WithMaxRows(0))
	err = dec.Decode(&blk)
	if err != nil {
		t.Fatalf("could not decode trigger without row limit: %+v", err)
	}
}

func TestDecoderSeek(t *testing.T) {
	dec := NewDecoder(make([]uint16, 10))
	for _, tc := range []struct {
		pos int
		err error
	}{
		{0, nil},
		{10, nil},
		{-1, ErrConfig},
		{11, ErrConfig},
	} {
		err := dec.Seek(tc.pos)
		if !errors.Is(err, tc.err) {
			t.Fatalf("invalid error for pos=%d: got=%+v, want=%+v", tc.pos, err, tc.err)
		}
	}
}

func TestDecoderNextPackage(t *testing.T) {
	enc := NewEncoder()
	enc.Rows = 2
	words := encodeTrigger(t, enc, nil, genTrigger(3, 1))

	var (
		dec  = NewDecoder(words)
		seqs []uint32
	)
	for {
		hdr, beg, end, err := dec.NextPackage()
		if err != nil && !errors.Is(err, ErrEndOfData) {
			t.Fatalf("could not read package: %+v", err)
		}
		if end <= beg {
			t.Fatalf("invalid package span [%d, %d)", beg, end)
		}
		seqs = append(seqs, hdr.Seq)
		if err != nil {
			break
		}
	}
	// 3 rows: 2 packages per link.
	want := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	if !cmp.Equal(seqs, want) {
		t.Fatalf("invalid sequence counters:\n%s", cmp.Diff(want, seqs))
	}
	if got, want := dec.Pos(), len(words); got != want {
		t.Fatalf("invalid cursor: got=%d, want=%d", got, want)
	}
}
