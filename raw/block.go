// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"fmt"
)

// Block is a row-major matrix of ADC samples.
// Rows are time samples, columns are channels.
type Block struct {
	Rows int
	Cols int
	Data []int16
}

// NewBlock creates a new zero-filled block.
func NewBlock(rows, cols int) *Block {
	return &Block{
		Rows: rows,
		Cols: cols,
		Data: make([]int16, rows*cols),
	}
}

// At returns the sample at row i, column j.
func (blk *Block) At(i, j int) int16 {
	blk.check(i, j)
	return blk.Data[i*blk.Cols+j]
}

// Set sets the sample at row i, column j.
func (blk *Block) Set(i, j int, v int16) {
	blk.check(i, j)
	blk.Data[i*blk.Cols+j] = v
}

// Row returns a view of the i-th row of the block.
func (blk *Block) Row(i int) []int16 {
	if i < 0 || i >= blk.Rows {
		panic(fmt.Errorf("raw: row index %d out of range [0, %d)", i, blk.Rows))
	}
	beg := i * blk.Cols
	return blk.Data[beg : beg+blk.Cols : beg+blk.Cols]
}

// Col copies the j-th column of the block into dst and returns it.
// dst is allocated when it is too small.
func (blk *Block) Col(dst []int16, j int) []int16 {
	if j < 0 || j >= blk.Cols {
		panic(fmt.Errorf("raw: column index %d out of range [0, %d)", j, blk.Cols))
	}
	if cap(dst) < blk.Rows {
		dst = make([]int16, blk.Rows)
	}
	dst = dst[:blk.Rows]
	for i := range dst {
		dst[i] = blk.Data[i*blk.Cols+j]
	}
	return dst
}

// Resize reshapes the block to rows x cols, reusing its storage when
// possible. All samples are reset to zero.
func (blk *Block) Resize(rows, cols int) {
	n := rows * cols
	if cap(blk.Data) < n {
		blk.Data = make([]int16, n)
	} else {
		blk.Data = blk.Data[:n]
		clear(blk.Data)
	}
	blk.Rows = rows
	blk.Cols = cols
}

func (blk *Block) check(i, j int) {
	if i < 0 || i >= blk.Rows || j < 0 || j >= blk.Cols {
		panic(fmt.Errorf(
			"raw: index (%d,%d) out of range [0, %d)x[0, %d)",
			i, j, blk.Rows, blk.Cols,
		))
	}
}
