// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evg-sh opens an interactive shell on one EVG card.
package main // import "github.com/go-daq/evg230/cmd/evg-sh"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/go-daq/evg230/evg"
)

func main() {
	var (
		name  = flag.String("name", "evg0", "device name")
		addr  = flag.String("addr", "", "IPv4 address of the card's register gateway")
		port  = flag.Int("port", 2000, "UDP port of the card's register gateway")
		freq  = flag.Uint("freq", 125000000, "reference frequency (Hz)")
		reset = flag.Bool("reset", false, "reset the card at startup")
	)

	flag.Parse()

	log.SetPrefix("evg-sh: ")
	log.SetFlags(0)

	if *addr == "" {
		flag.Usage()
		log.Fatalf("missing -addr flag")
	}

	err := run(*name, *addr, *port, uint32(*freq), *reset)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(name, addr string, port int, freq uint32, reset bool) error {
	reg := evg.NewRegistry(evg.WithReset(reset))
	err := reg.Configure(name, addr, port, freq)
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
	log.Printf("connected to %v", dev)

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	for {
		line, err := term.Prompt(name + ">> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				fmt.Fprintf(os.Stdout, "\n")
				return nil
			}
			return fmt.Errorf("could not read line: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := eval(dev, reg, line)
		if err != nil {
			log.Printf("%+v", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

func eval(dev *evg.Device, reg *evg.Registry, line string) (bool, error) {
	toks := strings.Fields(line)
	cmd, args := toks[0], toks[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil

	case "help":
		usage()
		return false, nil

	case "report":
		reg.Report(os.Stdout)
		return false, nil

	case "enable":
		on, err := parseBool(args)
		if err != nil {
			return false, err
		}
		return false, dev.Enable(on)

	case "status":
		on, err := dev.IsEnabled()
		if err != nil {
			return false, err
		}
		fmt.Printf("enabled: %v\n", on)
		return false, nil

	case "fw":
		fw, err := dev.FirmwareVersion()
		if err != nil {
			return false, err
		}
		fmt.Printf("firmware: 0x%04X\n", fw)
		return false, nil

	case "rf-src":
		if len(args) == 0 {
			src, err := dev.GetRFClockSource()
			if err != nil {
				return false, err
			}
			fmt.Printf("rf clock source: %v\n", src)
			return false, nil
		}
		switch args[0] {
		case "internal":
			return false, dev.SetRFClockSource(evg.ClockInternal)
		case "external":
			return false, dev.SetRFClockSource(evg.ClockExternal)
		}
		return false, fmt.Errorf("invalid RF clock source %q", args[0])

	case "rf-prescaler":
		if len(args) == 0 {
			p, err := dev.GetRFPrescaler()
			if err != nil {
				return false, err
			}
			fmt.Printf("rf prescaler: %d\n", p)
			return false, nil
		}
		p, err := parseUint(args[0], 8)
		if err != nil {
			return false, err
		}
		return false, dev.SetRFPrescaler(uint8(p))

	case "ac-prescaler":
		if len(args) == 0 {
			p, err := dev.GetACPrescaler()
			if err != nil {
				return false, err
			}
			fmt.Printf("ac prescaler: %d\n", p)
			return false, nil
		}
		p, err := parseUint(args[0], 8)
		if err != nil {
			return false, err
		}
		return false, dev.SetACPrescaler(uint8(p))

	case "ac-sync":
		if len(args) == 0 {
			src, err := dev.GetACSyncSource()
			if err != nil {
				return false, err
			}
			fmt.Printf("ac sync source: %v\n", src)
			return false, nil
		}
		switch args[0] {
		case "event":
			return false, dev.SetACSyncSource(evg.SyncEvent)
		case "mxc7":
			return false, dev.SetACSyncSource(evg.SyncMXC7)
		}
		return false, fmt.Errorf("invalid AC sync source %q", args[0])

	case "seq":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: seq n on|off")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		on, err := parseBool(args[1:])
		if err != nil {
			return false, err
		}
		return false, dev.EnableSequencer(n, on)

	case "seq-prescaler":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: seq-prescaler n [p]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		if len(args) == 1 {
			p, err := dev.GetSequencerPrescaler(n)
			if err != nil {
				return false, err
			}
			fmt.Printf("sequencer %d prescaler: %d\n", n, p)
			return false, nil
		}
		p, err := parseUint(args[1], 16)
		if err != nil {
			return false, err
		}
		return false, dev.SetSequencerPrescaler(n, uint16(p))

	case "seq-trigger":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: seq-trigger n [soft|ac]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		if len(args) == 1 {
			src, err := dev.GetSequencerTriggerSource(n)
			if err != nil {
				return false, err
			}
			fmt.Printf("sequencer %d trigger source: %v\n", n, src)
			return false, nil
		}
		switch args[1] {
		case "soft":
			return false, dev.SetSequencerTriggerSource(n, evg.TriggerSoft)
		case "ac":
			return false, dev.SetSequencerTriggerSource(n, evg.TriggerAC)
		}
		return false, fmt.Errorf("invalid trigger source %q", args[1])

	case "trigger":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: trigger n")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		return false, dev.TriggerSequencer(n)

	case "event":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: event n addr [code]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		addr, err := parseUint(args[1], 16)
		if err != nil {
			return false, err
		}
		if len(args) == 2 {
			code, err := dev.GetEvent(n, uint16(addr))
			if err != nil {
				return false, err
			}
			fmt.Printf("event %d@%d: 0x%02X\n", n, addr, code)
			return false, nil
		}
		code, err := parseUint(args[2], 8)
		if err != nil {
			return false, err
		}
		return false, dev.SetEvent(n, uint16(addr), uint8(code))

	case "stamp":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: stamp n addr [seconds]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		addr, err := parseUint(args[1], 16)
		if err != nil {
			return false, err
		}
		if len(args) == 2 {
			ts, err := dev.GetTimestamp(n, uint16(addr))
			if err != nil {
				return false, err
			}
			fmt.Printf("timestamp %d@%d: %v s\n", n, addr, ts)
			return false, nil
		}
		ts, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return false, err
		}
		return false, dev.SetTimestamp(n, uint16(addr), ts)

	case "mxc":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: mxc c [p]")
		}
		c, err := parseUint(args[0], 8)
		if err != nil {
			return false, err
		}
		if len(args) == 1 {
			p, err := dev.GetCounterPrescaler(uint8(c))
			if err != nil {
				return false, err
			}
			fmt.Printf("counter %d prescaler: %d\n", c, p)
			return false, nil
		}
		p, err := parseUint(args[1], 32)
		if err != nil {
			return false, err
		}
		return false, dev.SetCounterPrescaler(uint8(c), uint32(p))

	case "sw-event":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: sw-event code")
		}
		code, err := parseUint(args[0], 8)
		if err != nil {
			return false, err
		}
		return false, dev.SetSoftwareEvent(uint8(code))
	}

	return false, fmt.Errorf("unknown command %q (try \"help\")", cmd)
}

func parseBool(args []string) (bool, error) {
	if len(args) == 0 {
		return false, fmt.Errorf("missing on|off argument")
	}
	switch args[0] {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid on|off argument %q", args[0])
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return v, nil
}

func usage() {
	fmt.Print(`commands:
  enable on|off          switch the master enable
  status                 show the master enable state
  fw                     show the firmware version
  rf-src [internal|external]
  rf-prescaler [p]       p in 1..31
  ac-prescaler [p]       p in 1..255
  ac-sync [event|mxc7]
  seq n on|off           switch sequencer n
  seq-prescaler n [p]
  seq-trigger n [soft|ac]
  trigger n              software-trigger sequencer n
  event n addr [code]    read or program an event code
  stamp n addr [sec]     read or program a timestamp
  mxc c [p]              read or program a counter prescaler
  sw-event code          broadcast a software event
  report                 list configured devices
  quit                   leave the shell
`)
}
