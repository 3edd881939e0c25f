// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"net"
	"time"
)

const (
	// DefaultTimeout is the per-attempt reply timeout of a register
	// exchange.
	DefaultTimeout = 1 * time.Second
	// DefaultRetries is the number of transmissions of a register
	// exchange before giving up.
	DefaultRetries = 3
)

// transport is the connected UDP endpoint of one device.
//
// The gateway answers every request with exactly one 12-octet datagram.
// exchange sends the request and waits for that reply, retransmitting
// the whole request on any send failure, malformed reply, or timeout.
// Callers serialize access through the device lock, so requests and
// replies on one endpoint form a strict sequence.
type transport struct {
	conn    net.Conn
	timeout time.Duration
	retries int
}

func (trx *transport) exchange(req message) (message, error) {
	var (
		buf [msgSize]byte
		rep [msgSize + 1]byte // one spare octet to detect oversize replies
	)
	req.encode(buf[:])

	for i := 0; i < trx.retries; i++ {
		_, err := trx.conn.Write(buf[:])
		if err != nil {
			continue
		}

		err = trx.conn.SetReadDeadline(time.Now().Add(trx.timeout))
		if err != nil {
			continue
		}

		n, err := trx.conn.Read(rep[:])
		if err != nil || n != msgSize {
			continue
		}

		var m message
		err = m.decode(rep[:n])
		if err != nil {
			continue
		}
		return m, nil
	}

	return message{}, ErrTimeout
}

func (trx *transport) close() error {
	if trx.conn == nil {
		return nil
	}
	err := trx.conn.Close()
	trx.conn = nil
	return err
}
