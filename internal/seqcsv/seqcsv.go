// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seqcsv reads sequence tables for the EVG sequence RAM from
// CSV files.
//
// A table is a semicolon-separated file of (address, event code,
// timestamp) rows, timestamps in seconds:
//
//	# addr;code;time
//	0;16;0.000008
//	1;17;0.000016
package seqcsv // import "github.com/go-daq/evg230/internal/seqcsv"

import (
	"fmt"
	"io"
	"sort"

	"go-hep.org/x/hep/csvutil"
)

const (
	maxAddr = 2047
	maxCode = 0x7F

	// EndEvent is the event code terminating a sequence.
	EndEvent = 0x7F
)

// Entry is one sequence RAM cell: an event code emitted at a
// timestamp, in seconds from the sequence trigger.
type Entry struct {
	Addr uint16
	Code uint8
	Time float64
}

// Load reads a sequence table from the named CSV file. Entries come
// back sorted by address; addresses must be unique.
func Load(fname string) ([]Entry, error) {
	tbl, err := csvutil.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("seqcsv: could not open %q: %w", fname, err)
	}
	defer tbl.Close()
	tbl.Reader.Comma = ';'
	tbl.Reader.Comment = '#'

	rows, err := tbl.ReadRows(0, -1)
	if err != nil {
		return nil, fmt.Errorf("seqcsv: could not read rows of %q: %w", fname, err)
	}
	defer rows.Close()

	var (
		entries []Entry
		seen    = make(map[uint16]bool)
	)
	for rows.Next() {
		var (
			addr int
			code int
			ts   float64
		)
		err = rows.Scan(&addr, &code, &ts)
		if err != nil {
			return nil, fmt.Errorf("seqcsv: could not scan row %d of %q: %w", len(entries), fname, err)
		}
		switch {
		case addr < 0 || addr > maxAddr:
			return nil, fmt.Errorf("seqcsv: row %d of %q: address %d not in [0, %d]", len(entries), fname, addr, maxAddr)
		case code < 0 || code > maxCode:
			return nil, fmt.Errorf("seqcsv: row %d of %q: event code %d not in [0, %d]", len(entries), fname, code, maxCode)
		case ts < 0:
			return nil, fmt.Errorf("seqcsv: row %d of %q: negative timestamp %v", len(entries), fname, ts)
		case seen[uint16(addr)]:
			return nil, fmt.Errorf("seqcsv: row %d of %q: duplicate address %d", len(entries), fname, addr)
		}
		seen[uint16(addr)] = true
		entries = append(entries, Entry{
			Addr: uint16(addr),
			Code: uint8(code),
			Time: ts,
		})
	}
	if err := rows.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("seqcsv: could not read %q: %w", fname, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("seqcsv: empty sequence table %q", fname)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Addr < entries[j].Addr
	})
	return entries, nil
}
