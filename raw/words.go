// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// Words converts a buffer of big-endian bytes into 16-bit words.
// A trailing odd byte is dropped.
func Words(p []byte) []uint16 {
	ws := make([]uint16, len(p)/2)
	for i := range ws {
		ws[i] = binary.BigEndian.Uint16(p[2*i:])
	}
	return ws
}

// ReadWords reads all of r and returns its content as 16-bit words.
func ReadWords(r io.Reader) ([]uint16, error) {
	p, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("raw: could not read words: %w", err)
	}
	return Words(p), nil
}

// field returns the 32-bit field made of words k and k+1.
func field(words []uint16, k int) uint32 {
	return uint32(words[k])<<16 | uint32(words[k+1])
}
