// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raw

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Identity describes a raw file, as encoded in its name.
//
// Raw file names end with _<board>_<step>_<module>_<timestamp>, where the
// timestamp is the acquisition start time in hundredths of a second since
// the Unix epoch.
type Identity struct {
	Board  int
	Step   int
	Module int
	Epoch  int64 // seconds since the Unix epoch
	Millis int   // milliseconds within the second
}

// ParseIdentity extracts the identity of a raw file from its name.
func ParseIdentity(fname string) (Identity, error) {
	var (
		id   Identity
		base = filepath.Base(fname)
	)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	toks := strings.Split(base, "_")
	if len(toks) < 4 {
		return id, xerrors.Errorf("raw: invalid raw file name %q: missing identity fields", fname)
	}
	toks = toks[len(toks)-4:]
	for _, tok := range toks {
		if !isDigits(tok) {
			return id, xerrors.Errorf("raw: invalid identity field %q in %q: not a decimal number", tok, fname)
		}
	}

	for i, dst := range []*int{&id.Board, &id.Step, &id.Module} {
		v, err := strconv.Atoi(toks[i])
		if err != nil {
			return id, xerrors.Errorf("raw: invalid identity field %q in %q: %w", toks[i], fname, err)
		}
		*dst = v
	}

	ts := toks[3]
	if len(ts) < 3 {
		return id, xerrors.Errorf("raw: invalid timestamp %q in %q", ts, fname)
	}
	epoch, err := strconv.ParseInt(ts[:len(ts)-2], 10, 64)
	if err != nil {
		return id, xerrors.Errorf("raw: invalid timestamp %q in %q: %w", ts, fname, err)
	}
	cs, err := strconv.Atoi(ts[len(ts)-2:])
	if err != nil {
		return id, xerrors.Errorf("raw: invalid timestamp %q in %q: %w", ts, fname, err)
	}
	id.Epoch = epoch
	id.Millis = 10 * cs

	return id, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Time returns the acquisition start time.
func (id Identity) Time() time.Time {
	return time.Unix(id.Epoch, int64(id.Millis)*int64(time.Millisecond)).UTC()
}

// Name returns the base name of the raw file, without extension.
func (id Identity) Name(prefix string) string {
	return fmt.Sprintf("%s_%d_%d_%d_%d%02d", prefix, id.Board, id.Step, id.Module, id.Epoch, id.Millis/10)
}
