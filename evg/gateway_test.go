// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"net"
	"sync"
	"testing"

	"github.com/go-daq/evg230/evg/internal/regs"
)

// gateway is a fake register gateway: a UDP server answering each
// request the way the card would. It models the address-latched
// sequence RAMs and the multiplexed-counter prescaler bank, and
// records every request it decodes, in order.
type gateway struct {
	t    *testing.T
	conn *net.UDPConn

	mu     sync.Mutex
	regs   map[uint16]uint16
	sticky map[uint16]bool // registers that ignore writes
	reqs   []message
	drop   int  // drop the next n replies
	mute   bool // never reply

	ramCode [2]map[uint16]uint16 // sequence RAM, event codes
	ramHi   [2]map[uint16]uint16 // sequence RAM, timestamp high words
	ramLo   [2]map[uint16]uint16 // sequence RAM, timestamp low words
	mxcHi   map[uint16]uint16    // counter prescalers, high words
	mxcLo   map[uint16]uint16    // counter prescalers, low words
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("could not create fake gateway: %+v", err)
	}
	gw := &gateway{
		t:      t,
		conn:   conn,
		regs:   make(map[uint16]uint16),
		sticky: make(map[uint16]bool),
		mxcHi:  make(map[uint16]uint16),
		mxcLo:  make(map[uint16]uint16),
	}
	for n := 0; n < 2; n++ {
		gw.ramCode[n] = make(map[uint16]uint16)
		gw.ramHi[n] = make(map[uint16]uint16)
		gw.ramLo[n] = make(map[uint16]uint16)
	}
	go gw.serve()
	t.Cleanup(gw.close)
	return gw
}

func (gw *gateway) serve() {
	var buf [64]byte
	for {
		n, raddr, err := gw.conn.ReadFromUDP(buf[:])
		if err != nil {
			return
		}
		if n != msgSize {
			continue
		}
		var req message
		err = req.decode(buf[:n])
		if err != nil {
			continue
		}

		gw.mu.Lock()
		gw.reqs = append(gw.reqs, req)
		reg := uint16(req.address - regBase)
		rep := req
		switch req.access {
		case accessRead:
			rep.data = gw.load(reg)
		case accessWrite:
			if !gw.sticky[reg] {
				gw.store(reg, req.data)
			}
		}
		skip := gw.mute || gw.drop > 0
		if gw.drop > 0 {
			gw.drop--
		}
		gw.mu.Unlock()

		if skip {
			continue
		}
		var out [msgSize]byte
		rep.encode(out[:])
		_, _ = gw.conn.WriteToUDP(out[:], raddr)
	}
}

// load and store implement the card's latched register protocols.
// callers hold gw.mu.

func (gw *gateway) load(reg uint16) uint16 {
	switch reg {
	case regs.SEQ_CODE0:
		return gw.ramCode[0][gw.regs[regs.SEQ_ADDRESS0]]
	case regs.SEQ_CODE1:
		return gw.ramCode[1][gw.regs[regs.SEQ_ADDRESS1]]
	case regs.SEQ_TIME0:
		return gw.ramHi[0][gw.regs[regs.SEQ_ADDRESS0]]
	case regs.SEQ_TIME0 + 2:
		return gw.ramLo[0][gw.regs[regs.SEQ_ADDRESS0]]
	case regs.SEQ_TIME1:
		return gw.ramHi[1][gw.regs[regs.SEQ_ADDRESS1]]
	case regs.SEQ_TIME1 + 2:
		return gw.ramLo[1][gw.regs[regs.SEQ_ADDRESS1]]
	case regs.MXC_PRESCALER:
		sel := gw.regs[regs.MXC_CONTROL]
		if sel&regs.MXC_CONTROL_HIGH_WORD != 0 {
			return gw.mxcHi[sel&regs.MXC_CONTROL_COUNTER_MASK]
		}
		return gw.mxcLo[sel&regs.MXC_CONTROL_COUNTER_MASK]
	}
	return gw.regs[reg]
}

func (gw *gateway) store(reg, v uint16) {
	switch reg {
	case regs.SEQ_CODE0:
		gw.ramCode[0][gw.regs[regs.SEQ_ADDRESS0]] = v
	case regs.SEQ_CODE1:
		gw.ramCode[1][gw.regs[regs.SEQ_ADDRESS1]] = v
	case regs.SEQ_TIME0:
		gw.ramHi[0][gw.regs[regs.SEQ_ADDRESS0]] = v
	case regs.SEQ_TIME0 + 2:
		gw.ramLo[0][gw.regs[regs.SEQ_ADDRESS0]] = v
	case regs.SEQ_TIME1:
		gw.ramHi[1][gw.regs[regs.SEQ_ADDRESS1]] = v
	case regs.SEQ_TIME1 + 2:
		gw.ramLo[1][gw.regs[regs.SEQ_ADDRESS1]] = v
	case regs.MXC_PRESCALER:
		sel := gw.regs[regs.MXC_CONTROL]
		if sel&regs.MXC_CONTROL_HIGH_WORD != 0 {
			gw.mxcHi[sel&regs.MXC_CONTROL_COUNTER_MASK] = v
		} else {
			gw.mxcLo[sel&regs.MXC_CONTROL_COUNTER_MASK] = v
		}
	default:
		gw.regs[reg] = v
	}
}

func (gw *gateway) close() {
	_ = gw.conn.Close()
}

func (gw *gateway) port() int {
	return gw.conn.LocalAddr().(*net.UDPAddr).Port
}

func (gw *gateway) set(reg, v uint16) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.regs[reg] = v
}

func (gw *gateway) get(reg uint16) uint16 {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.regs[reg]
}

func (gw *gateway) stick(reg uint16) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.sticky[reg] = true
}

func (gw *gateway) setDrop(n int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.drop = n
}

func (gw *gateway) setMute(mute bool) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.mute = mute
}

func (gw *gateway) requests() []message {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	reqs := make([]message, len(gw.reqs))
	copy(reqs, gw.reqs)
	return reqs
}

func (gw *gateway) reset() {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.reqs = nil
}
