// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketFiles = []byte("files")

// entry is the ledger record of a processed raw file.
type entry struct {
	File     string    `json:"file"`
	Size     int64     `json:"size"`
	Triggers int       `json:"triggers"`
	Failed   bool      `json:"failed"`
	Err      string    `json:"err,omitempty"`
	Time     time.Time `json:"time"`
}

// ledger keeps track of the raw files already processed.
type ledger struct {
	db *bbolt.DB
}

func openLedger(fname string) (*ledger, error) {
	db, err := bbolt.Open(fname, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open ledger %q: %w", fname, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFiles)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not create ledger bucket: %w", err)
	}

	return &ledger{db: db}, nil
}

func (l *ledger) Close() error {
	return l.db.Close()
}

func (l *ledger) get(fname string) (entry, bool, error) {
	var (
		e  entry
		ok bool
	)
	err := l.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketFiles).Get([]byte(fname))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return e, ok, fmt.Errorf("could not read ledger entry %q: %w", fname, err)
	}
	return e, ok, nil
}

func (l *ledger) put(e entry) error {
	v, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not encode ledger entry %q: %w", e.File, err)
	}
	err = l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).Put([]byte(e.File), v)
	})
	if err != nil {
		return fmt.Errorf("could not store ledger entry %q: %w", e.File, err)
	}
	return nil
}

// entries returns all the ledger records, sorted by file name.
func (l *ledger) entries() ([]entry, error) {
	var es []entry
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(k, v []byte) error {
			var e entry
			err := json.Unmarshal(v, &e)
			if err != nil {
				return fmt.Errorf("could not decode entry %q: %w", k, err)
			}
			es = append(es, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not read ledger: %w", err)
	}
	return es, nil
}
