// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

// Assemble assembles the 32-column blocks of 4 links into a new 128-column
// trigger block.
//
// Link i fills columns [32i, 32i+32).
// The trigger has as many rows as the longest link. Samples past the end of
// a shorter link are zero.
func Assemble(links [NumLinks]*Block) *Block {
	var blk Block
	assembleInto(&blk, links)
	return &blk
}

func assembleInto(dst *Block, links [NumLinks]*Block) {
	rows := 0
	for _, lnk := range links {
		if lnk != nil {
			rows = max(rows, lnk.Rows)
		}
	}
	dst.Resize(rows, TriggerChans)

	for i, lnk := range links {
		if lnk == nil {
			continue
		}
		off := i * NumChans
		for j := 0; j < lnk.Rows; j++ {
			copy(dst.Row(j)[off:off+NumChans], lnk.Row(j))
		}
	}
}
