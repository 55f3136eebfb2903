// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"fmt"
	"math"
)

// Stats summarizes the samples of a block.
type Stats struct {
	Rows int
	Cols int
	Min  int16
	Max  int16
	Sum  int64
	Mean float64
}

// Stats returns the summary of the samples of the block.
func (blk *Block) Stats() Stats {
	st := Stats{
		Rows: blk.Rows,
		Cols: blk.Cols,
	}
	if len(blk.Data) == 0 {
		return st
	}

	st.Min = math.MaxInt16
	st.Max = math.MinInt16
	for _, v := range blk.Data {
		st.Min = min(st.Min, v)
		st.Max = max(st.Max, v)
		st.Sum += int64(v)
	}
	st.Mean = float64(st.Sum) / float64(len(blk.Data))
	return st
}

func (st Stats) String() string {
	return fmt.Sprintf(
		"%dx%d min=%d max=%d sum=%d avg=%g",
		st.Rows, st.Cols, st.Min, st.Max, st.Sum, st.Mean,
	)
}
