// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evg-seq programs the sequence RAM of an EVG card from a CSV
// sequence table.
package main // import "github.com/go-daq/evg230/cmd/evg-seq"

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/go-daq/evg230/evg"
	"github.com/go-daq/evg230/internal/seqcsv"
)

func main() {
	var (
		name = flag.String("name", "evg0", "device name")
		addr = flag.String("addr", "", "IPv4 address of the card's register gateway")
		port = flag.Int("port", 2000, "UDP port of the card's register gateway")
		freq = flag.Uint("freq", 125000000, "reference frequency (Hz)")
		nseq = flag.Int("seq", 0, "sequencer to program")
		end  = flag.Bool("end", true, "append the end-of-sequence entry")
	)

	flag.Parse()

	log.SetPrefix("evg-seq: ")
	log.SetFlags(0)

	if *addr == "" {
		flag.Usage()
		log.Fatalf("missing -addr flag")
	}
	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing sequence table file")
	}

	err := run(*name, *addr, *port, uint32(*freq), *nseq, *end, flag.Arg(0))
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(name, addr string, port int, freq uint32, nseq int, end bool, fname string) error {
	entries, err := seqcsv.Load(fname)
	if err != nil {
		return fmt.Errorf("could not load sequence table: %w", err)
	}

	reg := evg.NewRegistry()
	err = reg.Configure(name, addr, port, freq)
	if err != nil {
		return fmt.Errorf("could not configure device: %w", err)
	}
	err = reg.Init(context.Background())
	if err != nil {
		return fmt.Errorf("could not initialize device: %w", err)
	}
	defer reg.Shutdown()

	dev, err := reg.Open(name)
	if err != nil {
		return fmt.Errorf("could not open device: %w", err)
	}

	log.Printf("programming %d entries on sequencer %d of %v...", len(entries), nseq, dev)
	for _, e := range entries {
		err = dev.SetEvent(nseq, e.Addr, e.Code)
		if err != nil {
			return fmt.Errorf("could not program event %d: %w", e.Addr, err)
		}
		err = dev.SetTimestamp(nseq, e.Addr, e.Time)
		if err != nil {
			return fmt.Errorf("could not program timestamp %d: %w", e.Addr, err)
		}
	}

	if end {
		last := entries[len(entries)-1].Addr
		if int(last)+1 > evg.MaxEventAddress {
			return fmt.Errorf("no room for the end-of-sequence entry after address %d", last)
		}
		err = dev.SetEvent(nseq, last+1, evg.EndEvent)
		if err != nil {
			return fmt.Errorf("could not program end-of-sequence entry: %w", err)
		}
	}

	log.Printf("programming %d entries on sequencer %d of %v... [done]", len(entries), nseq, dev)
	return nil
}
