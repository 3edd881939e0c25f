// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evg provides a driver for the VME-EVG230/RF timing event
// generator card, reached over UDP through the register gateway the
// card exposes on its network port.
//
// Devices are declared on a Registry and initialized in one go:
//
//	reg := evg.NewRegistry()
//	err := reg.Configure("evg0", "10.0.0.42", 2000, 125000000)
//	err = reg.Init(context.Background())
//	dev, err := reg.Open("evg0")
//	err = dev.Enable(true)
//
// All operations on one device are serialized by a per-device lock;
// operations on distinct devices run in parallel.
package evg // import "github.com/go-daq/evg230/evg"

// ClockSource selects the reference feeding the RF event clock.
type ClockSource uint8

const (
	ClockInternal ClockSource = iota // on-board fractional synthesizer
	ClockExternal                    // RF input on the front panel
)

func (src ClockSource) String() string {
	switch src {
	case ClockInternal:
		return "internal"
	case ClockExternal:
		return "external"
	}
	return "invalid"
}

// SyncSource selects what the AC trigger logic synchronizes to.
type SyncSource uint8

const (
	SyncEvent SyncSource = iota // event clock
	SyncMXC7                    // multiplexed counter 7
)

func (src SyncSource) String() string {
	switch src {
	case SyncEvent:
		return "event"
	case SyncMXC7:
		return "mxc7"
	}
	return "invalid"
}

// TriggerSource selects what starts a sequencer.
type TriggerSource uint8

const (
	TriggerSoft TriggerSource = iota // software trigger over the bus
	TriggerAC                        // AC mains trigger logic
)

func (src TriggerSource) String() string {
	switch src {
	case TriggerSoft:
		return "soft"
	case TriggerAC:
		return "ac"
	}
	return "invalid"
}

const (
	// NumSequencers is the number of sequence RAM engines on the
	// dual-sequencer card revision.
	NumSequencers = 2
	// NumCounters is the number of multiplexed counters.
	NumCounters = 8
	// MaxEventAddress is the highest sequence RAM address.
	MaxEventAddress = 2047
	// MaxEventCode is the highest event code.
	MaxEventCode = 0x7F
	// EndEvent is the event code terminating a sequence.
	EndEvent = 0x7F
)
