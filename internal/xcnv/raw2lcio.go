// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/pcbro/rawsrc"
	"go-hep.org/x/hep/lcio"
)

// Raw2LCIO converts all the triggers of src into LCIO events.
// Raw2LCIO returns the number of written events.
func Raw2LCIO(w *lcio.Writer, src *rawsrc.Source, run int32, freq int, msg *log.Logger) (int, error) {
	if freq <= 0 {
		freq = 100
	}

	n := 0
	for {
		frame, ok, err := src.Poll()
		if err != nil {
			return n, fmt.Errorf("could not poll raw source: %w", err)
		}
		if !ok || frame == nil {
			break
		}

		if n%freq == 0 {
			msg.Printf("processing evt %d...", n)
		}

		if n == 0 {
			err = w.WriteRunHeader(&lcio.RunHeader{
				RunNumber: run,
				Detector:  Detector,
				Descr:     frame.File,
				Params: lcio.Params{
					Ints: map[string][]int32{
						"Board":  {int32(frame.Ident.Board)},
						"Step":   {int32(frame.Ident.Step)},
						"Module": {int32(frame.Ident.Module)},
					},
				},
			})
			if err != nil {
				return n, fmt.Errorf("could not write run header: %w", err)
			}
		}

		evt := EventFrom(frame, run)
		err = w.WriteEvent(&evt)
		if err != nil {
			return n, fmt.Errorf("could not write event %d: %w", n, err)
		}
		n++
	}

	return n, nil
}

// EventFrom converts a decoded trigger into an LCIO event.
//
// Each column of the trigger is stored as one TrackerRawData element, with
// its physical channel number as CellID0 and its electronics column as
// CellID1.
func EventFrom(frame *rawsrc.Frame, run int32) lcio.Event {
	var (
		blk  = frame.Block
		coll = &lcio.TrackerRawDataContainer{
			Data: make([]lcio.TrackerRawData, blk.Cols),
		}
		col []int16
	)
	for j := range coll.Data {
		col = blk.Col(col, j)
		adcs := make([]uint16, len(col))
		for i, v := range col {
			adcs[i] = uint16(v)
		}
		coll.Data[j] = lcio.TrackerRawData{
			CellID0: int32(frame.Channels[j]),
			CellID1: int32(j),
			Time:    0,
			ADCs:    adcs,
		}
	}

	evt := lcio.Event{
		RunNumber:   run,
		EventNumber: int32(frame.Trigger),
		TimeStamp:   frame.Ident.Time().UnixNano(),
		Detector:    Detector,
		Params: lcio.Params{
			Ints: map[string][]int32{
				"Index": {int32(frame.Index)},
				"Rows":  {int32(blk.Rows)},
			},
			Strings: map[string][]string{
				"File": {frame.File},
			},
		},
	}
	evt.Add(Collection, coll)
	return evt
}
