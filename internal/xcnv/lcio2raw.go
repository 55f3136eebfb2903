// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-lpc/pcbro/raw"
	"github.com/go-lpc/pcbro/rawsrc"
	"go-hep.org/x/hep/lcio"
)

// FrameFrom converts an LCIO event back into a decoded trigger.
func FrameFrom(evt *lcio.Event) (*rawsrc.Frame, error) {
	v := evt.Get(Collection)
	if v == nil {
		return nil, fmt.Errorf("could not find collection %q in event %d", Collection, evt.EventNumber)
	}
	coll, ok := v.(*lcio.TrackerRawDataContainer)
	if !ok {
		return nil, fmt.Errorf("invalid collection type %T in event %d", v, evt.EventNumber)
	}
	if got, want := len(coll.Data), raw.TriggerChans; got != want {
		return nil, fmt.Errorf(
			"invalid number of channels in event %d (got=%d, want=%d)",
			evt.EventNumber, got, want,
		)
	}

	rows := 0
	if len(coll.Data) > 0 {
		rows = len(coll.Data[0].ADCs)
	}

	frame := &rawsrc.Frame{
		Trigger: int(evt.EventNumber),
		Block:   raw.NewBlock(rows, raw.TriggerChans),
	}
	if v := evt.Params.Ints["Index"]; len(v) == 1 {
		frame.Index = int(v[0])
	}
	if v := evt.Params.Strings["File"]; len(v) == 1 {
		frame.File = v[0]
		id, err := raw.ParseIdentity(frame.File)
		if err == nil {
			frame.Ident = id
		}
	}

	for j, data := range coll.Data {
		if got, want := len(data.ADCs), rows; got != want {
			return nil, fmt.Errorf(
				"invalid number of samples for column %d of event %d (got=%d, want=%d)",
				j, evt.EventNumber, got, want,
			)
		}
		frame.Channels[j] = int(data.CellID0)
		for i, adc := range data.ADCs {
			frame.Block.Set(i, j, int16(adc))
		}
	}

	err := frame.Channels.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid channels in event %d: %w", evt.EventNumber, err)
	}

	return frame, nil
}

// LCIO2Raw reads all the events of r and calls f with the decoded triggers.
func LCIO2Raw(r *lcio.Reader, f func(frame *rawsrc.Frame) error) error {
	for r.Next() {
		evt := r.Event()
		frame, err := FrameFrom(&evt)
		if err != nil {
			return fmt.Errorf("could not convert LCIO event: %w", err)
		}
		err = f(frame)
		if err != nil {
			return err
		}
	}

	err := r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO events: %w", err)
	}
	return nil
}
