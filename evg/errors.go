// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import "errors"

var (
	// ErrInvalidArgument is returned when an input lies outside the
	// documented domain of an operation.
	ErrInvalidArgument = errors.New("evg: invalid argument")

	// ErrUnknownDevice is returned by Open for names that were never
	// configured.
	ErrUnknownDevice = errors.New("evg: unknown device")

	// ErrTimeout is returned when all retransmissions of a register
	// exchange went unanswered.
	ErrTimeout = errors.New("evg: transport timeout")

	// ErrVerifyMismatch is returned when a register read-back disagrees
	// with the value just written.
	ErrVerifyMismatch = errors.New("evg: register verify mismatch")

	// ErrConfigFull is returned by Configure when the registry already
	// holds MaxDevices devices.
	ErrConfigFull = errors.New("evg: too many devices")

	// ErrSocket is returned when the UDP endpoint of a device could not
	// be created or connected, or when an operation runs on a device
	// that was not initialized.
	ErrSocket = errors.New("evg: socket error")
)
