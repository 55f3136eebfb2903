// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pcbro holds code to decode the raw data of the pcbro readout
// boards.
//
// The raw package decodes the packetized 16-bit word streams into trigger
// blocks of 128 channels. The chmap package reorders trigger columns by
// physical channel. The rawsrc package sequences raw files into a stream
// of decoded triggers.
package pcbro // import "github.com/go-lpc/pcbro"

import (
	"fmt"
	"runtime/debug"
)

const modPath = "github.com/go-lpc/pcbro"

// Version returns the version of pcbro and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	mods := append([]*debug.Module{&b.Main}, b.Deps...)
	for _, m := range mods {
		if m == nil || m.Path != modPath {
			continue
		}
		if r := m.Replace; r != nil {
			switch {
			case r.Version != "" && r.Path != "":
				return fmt.Sprintf("%s %s", r.Path, r.Version), r.Sum
			case r.Version != "":
				return r.Version, r.Sum
			case r.Path != "":
				return r.Path, r.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
