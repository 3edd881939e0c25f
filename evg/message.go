// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"encoding/binary"
	"fmt"

	"github.com/go-daq/evg230/evg/internal/regs"
)

const (
	accessRead  = 1
	accessWrite = 2

	msgSize = 12 // wire size of a gateway message

	regBase = regs.BASE
)

// message is one request or reply datagram of the register gateway.
// All multi-octet fields travel in network byte order.
type message struct {
	access    uint8  // 1=read, 2=write
	status    uint8  // zero on requests, filled by the card on replies
	data      uint16 // payload on writes, register value on read replies
	address   uint32 // regs.BASE + register offset
	reference uint32 // reserved, echoed by the card
}

func (m message) encode(p []byte) {
	_ = p[msgSize-1]
	p[0] = m.access
	p[1] = m.status
	binary.BigEndian.PutUint16(p[2:4], m.data)
	binary.BigEndian.PutUint32(p[4:8], m.address)
	binary.BigEndian.PutUint32(p[8:12], m.reference)
}

func (m *message) decode(p []byte) error {
	if len(p) != msgSize {
		return fmt.Errorf("evg: invalid message size %d", len(p))
	}
	m.access = p[0]
	m.status = p[1]
	m.data = binary.BigEndian.Uint16(p[2:4])
	m.address = binary.BigEndian.Uint32(p[4:8])
	m.reference = binary.BigEndian.Uint32(p[8:12])
	return nil
}

func readRequest(reg uint16) message {
	return message{
		access:  accessRead,
		address: regBase + uint32(reg),
	}
}

func writeRequest(reg uint16, data uint16) message {
	return message{
		access:  accessWrite,
		data:    data,
		address: regBase + uint32(reg),
	}
}
