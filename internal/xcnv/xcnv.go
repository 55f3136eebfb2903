// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert decoded pcbro triggers to/from LCIO.
package xcnv // import "github.com/go-lpc/pcbro/internal/xcnv"

const (
	// Collection is the name of the LCIO collection holding the waveforms.
	Collection = "PCBRO_RAW"

	// Detector is the name of the detector in LCIO run and event headers.
	Detector = "PCBRO-50L"
)
