// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/go-daq/evg230/evg/internal/regs"
)

func TestMessageEncode(t *testing.T) {
	for _, tc := range []struct {
		name string
		msg  message
		want []byte
	}{
		{
			name: "read-control",
			msg:  readRequest(regs.CONTROL),
			want: []byte{
				0x01, 0x00,
				0x00, 0x00,
				0x80, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
			},
		},
		{
			name: "write-rf-control",
			msg:  writeRequest(regs.RF_CONTROL, 0x0003),
			want: []byte{
				0x02, 0x00,
				0x00, 0x03,
				0x80, 0x00, 0x00, 0x40,
				0x00, 0x00, 0x00, 0x00,
			},
		},
		{
			name: "reply",
			msg: message{
				access:    accessRead,
				status:    0x2A,
				data:      0x7001,
				address:   regBase + regs.CONTROL,
				reference: 0xDEADBEEF,
			},
			want: []byte{
				0x01, 0x2A,
				0x70, 0x01,
				0x80, 0x00, 0x00, 0x00,
				0xDE, 0xAD, 0xBE, 0xEF,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := make([]byte, msgSize)
			tc.msg.encode(got)
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("invalid encoding:\ngot= %#v\nwant=%#v", got, tc.want)
			}

			var msg message
			err := msg.decode(got)
			if err != nil {
				t.Fatalf("could not decode message: %+v", err)
			}
			if !reflect.DeepEqual(msg, tc.msg) {
				t.Fatalf("invalid round-trip:\ngot= %#v\nwant=%#v", msg, tc.msg)
			}
		})
	}
}

func TestMessageDecodeInvalidSize(t *testing.T) {
	var msg message
	for _, n := range []int{0, 1, 11, 13} {
		err := msg.decode(make([]byte, n))
		if err == nil {
			t.Fatalf("decode of %d octets: expected an error", n)
		}
	}
}
