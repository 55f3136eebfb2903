// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawsrc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-lpc/pcbro/raw"
	"gopkg.in/yaml.v3"
)

// Error policies.
const (
	Skip  = "skip"  // log the failure and go to the next file
	Abort = "abort" // return the failure to the caller
)

// Config holds the configuration of a raw data source.
type Config struct {
	Files       []string `yaml:"files"`        // raw files, in processing order
	Framing     string   `yaml:"framing"`      // package framing strategy (seq or sync)
	PackageSize int      `yaml:"package_size"` // nominal package payload size, in words
	MaxRows     int      `yaml:"max_rows"`     // maximum number of rows per link
	Remap       bool     `yaml:"remap"`        // reorder trigger columns by physical channel
	ChMap       string   `yaml:"chmap"`        // channel map file (default map if empty)
	OnError     string   `yaml:"on_error"`     // error policy (skip or abort)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Framing:     "seq",
		PackageSize: raw.DefaultPackageSize,
		MaxRows:     raw.DefaultMaxRows,
		OnError:     Skip,
	}
}

// LoadConfig loads the YAML configuration file fname.
// Fields missing from the file keep their default value.
func LoadConfig(fname string) (Config, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Config{}, fmt.Errorf("rawsrc: could not open config file: %w", err)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return cfg, fmt.Errorf("rawsrc: could not load config %q: %w", fname, err)
	}
	return cfg, nil
}

// DecodeConfig decodes a YAML configuration from r.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("rawsrc: could not decode config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration is consistent.
func (cfg Config) Validate() error {
	_, err := raw.FramerFrom(cfg.Framing)
	if err != nil {
		return fmt.Errorf("rawsrc: invalid framing: %w", err)
	}

	if cfg.PackageSize <= 0 {
		return fmt.Errorf("rawsrc: invalid package size %d: %w", cfg.PackageSize, raw.ErrConfig)
	}

	if cfg.MaxRows < 0 {
		return fmt.Errorf("rawsrc: invalid max rows %d: %w", cfg.MaxRows, raw.ErrConfig)
	}

	switch cfg.OnError {
	case Skip, Abort:
	default:
		return fmt.Errorf("rawsrc: invalid error policy %q: %w", cfg.OnError, raw.ErrConfig)
	}

	return nil
}

func (cfg Config) options() []raw.Option {
	f, _ := raw.FramerFrom(cfg.Framing) // already validated.
	return []raw.Option{
		raw.WithFramer(f),
		raw.WithPackageSize(cfg.PackageSize),
		raw.WithMaxRows(cfg.MaxRows),
	}
}
