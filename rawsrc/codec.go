// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawsrc

import (
	"bytes"
	"fmt"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/pcbro/chmap"
	"github.com/go-lpc/pcbro/raw"
)

// MarshalTDAQ encodes the frame into its TDAQ wire format.
func (frame *Frame) MarshalTDAQ() ([]byte, error) {
	var (
		buf = new(bytes.Buffer)
		enc = tdaq.NewEncoder(buf)
		blk = frame.Block
	)
	if blk == nil {
		blk = &raw.Block{}
	}

	enc.WriteU32(uint32(frame.Ident.Board))
	enc.WriteU32(uint32(frame.Ident.Step))
	enc.WriteU32(uint32(frame.Ident.Module))
	enc.WriteI64(frame.Ident.Epoch)
	enc.WriteU32(uint32(frame.Ident.Millis))
	enc.WriteStr(frame.File)
	enc.WriteU32(uint32(frame.Index))
	enc.WriteU32(uint32(frame.Trigger))

	for _, ch := range frame.Channels {
		enc.WriteU16(uint16(ch))
	}

	enc.WriteU32(uint32(blk.Rows))
	enc.WriteU32(uint32(blk.Cols))
	for _, v := range blk.Data {
		enc.WriteU16(uint16(v))
	}

	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("rawsrc: could not encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalTDAQ decodes the frame from its TDAQ wire format.
func (frame *Frame) UnmarshalTDAQ(p []byte) error {
	dec := tdaq.NewDecoder(bytes.NewReader(p))

	frame.Ident.Board = int(dec.ReadU32())
	frame.Ident.Step = int(dec.ReadU32())
	frame.Ident.Module = int(dec.ReadU32())
	frame.Ident.Epoch = dec.ReadI64()
	frame.Ident.Millis = int(dec.ReadU32())
	frame.File = dec.ReadStr()
	frame.Index = int(dec.ReadU32())
	frame.Trigger = int(dec.ReadU32())

	var tbl chmap.Table
	for i := range tbl {
		tbl[i] = int(dec.ReadU16())
	}
	frame.Channels = tbl

	var (
		rows = int(dec.ReadU32())
		cols = int(dec.ReadU32())
	)
	if err := dec.Err(); err != nil {
		return fmt.Errorf("rawsrc: could not decode frame header: %w", err)
	}
	switch {
	case rows == 0 && cols == 0:
		// no block.
	case cols != raw.TriggerChans, rows < 0, rows > len(p)/(2*cols):
		return fmt.Errorf("rawsrc: invalid frame dimensions %dx%d", rows, cols)
	}

	if frame.Block == nil {
		frame.Block = new(raw.Block)
	}
	frame.Block.Resize(rows, cols)
	for i := range frame.Block.Data {
		frame.Block.Data[i] = int16(dec.ReadU16())
	}

	if err := dec.Err(); err != nil {
		return fmt.Errorf("rawsrc: could not decode frame: %w", err)
	}
	return nil
}
