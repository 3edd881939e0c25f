// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-daq/evg230/evg/internal/regs"
)

func dialGateway(t *testing.T, gw *gateway) *transport {
	t.Helper()
	conn, err := net.Dial("udp4", fmt.Sprintf("127.0.0.1:%d", gw.port()))
	if err != nil {
		t.Fatalf("could not connect to fake gateway: %+v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &transport{
		conn:    conn,
		timeout: 50 * time.Millisecond,
		retries: DefaultRetries,
	}
}

func TestExchange(t *testing.T) {
	gw := newGateway(t)
	gw.set(regs.FIRMWARE, 0x0230)

	trx := dialGateway(t, gw)
	rep, err := trx.exchange(readRequest(regs.FIRMWARE))
	if err != nil {
		t.Fatalf("could not exchange: %+v", err)
	}
	if got, want := rep.data, uint16(0x0230); got != want {
		t.Fatalf("invalid reply data: got=0x%04X, want=0x%04X", got, want)
	}
	if got, want := len(gw.requests()), 1; got != want {
		t.Fatalf("invalid number of requests: got=%d, want=%d", got, want)
	}
}

func TestExchangeRetransmit(t *testing.T) {
	gw := newGateway(t)
	gw.set(regs.FIRMWARE, 0x0230)
	gw.setDrop(2)

	trx := dialGateway(t, gw)
	rep, err := trx.exchange(readRequest(regs.FIRMWARE))
	if err != nil {
		t.Fatalf("could not exchange after dropped replies: %+v", err)
	}
	if got, want := rep.data, uint16(0x0230); got != want {
		t.Fatalf("invalid reply data: got=0x%04X, want=0x%04X", got, want)
	}
	if got, want := len(gw.requests()), 3; got != want {
		t.Fatalf("invalid number of transmissions: got=%d, want=%d", got, want)
	}
}

func TestExchangeTimeout(t *testing.T) {
	gw := newGateway(t)
	gw.setMute(true)

	trx := dialGateway(t, gw)
	_, err := trx.exchange(readRequest(regs.CONTROL))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrTimeout)
	}
	if got, want := len(gw.requests()), DefaultRetries; got != want {
		t.Fatalf("invalid number of transmissions: got=%d, want=%d", got, want)
	}
}

func TestTransportClose(t *testing.T) {
	gw := newGateway(t)
	trx := dialGateway(t, gw)

	err := trx.close()
	if err != nil {
		t.Fatalf("could not close transport: %+v", err)
	}
	if trx.conn != nil {
		t.Fatalf("transport still holds a connection after close")
	}
	err = trx.close()
	if err != nil {
		t.Fatalf("double close: %+v", err)
	}
}
