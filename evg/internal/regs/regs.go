// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the register map of the VME-EVG230/RF timing event
// generator card, as exposed by its UDP register gateway.
//
// The map is the superset of the single- and dual-sequencer card
// revisions. Offsets and bitfields are part of the contract with the
// card firmware and must not be reordered or renumbered.
package regs // import "github.com/go-daq/evg230/evg/internal/regs"

// BASE is the base address of the register bank behind the gateway.
// Every request addresses BASE + register offset.
const BASE = 0x80000000

// Register offsets.
const (
	CONTROL        = 0x00
	EVENT_ENABLE   = 0x02
	SW_EVENT       = 0x04
	SEQ_CLOCK_SEL1 = 0x24
	SEQ_CLOCK_SEL2 = 0x26
	AC_ENABLE      = 0x28
	MXC_CONTROL    = 0x2A
	MXC_PRESCALER  = 0x2C
	FIRMWARE       = 0x2E
	RF_CONTROL     = 0x40
	SEQ_ADDRESS0   = 0x44
	SEQ_CODE0      = 0x46
	SEQ_TIME0      = 0x48
	SEQ_ADDRESS1   = 0x50
	SEQ_CODE1      = 0x52
	SEQ_TIME1      = 0x54
	USEC_DIVIDER   = 0x68
)

// CONTROL bits.
const (
	CONTROL_ENABLE      = 0x7001
	CONTROL_DISABLE     = 0xF001
	CONTROL_DISABLE_BIT = 0x8000
	CONTROL_VTRG1       = 0x0100 // software trigger, sequencer 0
	CONTROL_VTRG2       = 0x0080 // software trigger, sequencer 1
)

// EVENT_ENABLE bits.
const (
	EVENT_ENABLE_VME        = 0x0001
	EVENT_ENABLE_SEQUENCER1 = 0x0002
	EVENT_ENABLE_SEQUENCER0 = 0x0004
)

// AC_ENABLE bits.
const (
	AC_ENABLE_DIVIDER_MASK = 0x00FF
	AC_ENABLE_SYNC         = 0x1000
	AC_ENABLE_SEQ0         = 0x4000
	AC_ENABLE_SEQ1         = 0x8000
)

// MXC_CONTROL bits. The low 3 bits select one of the 8 multiplexed
// counters; HIGH_WORD selects which half of its 32-bit prescaler the
// MXC_PRESCALER register addresses.
const (
	MXC_CONTROL_COUNTER_MASK = 0x0007
	MXC_CONTROL_HIGH_WORD    = 0x0008
)

// RF_CONTROL bits.
const (
	RF_CONTROL_DIVIDER_MASK = 0x003F
	RF_CONTROL_EXTERNAL     = 0x01C0
)

// END_EVENT is the event code terminating a sequence.
const END_EVENT = 0x7F
