// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxDevices is the maximum number of devices a Registry holds.
	MaxDevices = 10

	nameLen = 30 // names must be 1..29 characters
)

// Registry holds the configured devices.
//
// Configuration is a single-threaded phase: Configure all devices, then
// Init, then hand out handles with Open. The device list is read-only
// once Init ran, so operation threads need no registry-level locking.
type Registry struct {
	msg  *log.Logger
	cfg  config
	devs []*Device
}

// NewRegistry returns an empty device registry.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		msg: log.New(os.Stdout, "evg: ", 0),
		cfg: newConfig(),
	}
	for _, opt := range opts {
		opt(&reg.cfg)
	}
	return reg
}

// Configure declares a device. name is a unique identifier of 1..29
// characters, ip a dotted-quad IPv4 address, port the UDP port of the
// card's register gateway and freq the reference frequency in Hz.
// Configure performs no I/O.
func (reg *Registry) Configure(name, ip string, port int, freq uint32) error {
	if len(reg.devs) >= MaxDevices {
		return fmt.Errorf("%w: already %d devices", ErrConfigFull, len(reg.devs))
	}
	if len(name) == 0 || len(name) >= nameLen {
		return fmt.Errorf("%w: missing or incorrect name %q", ErrInvalidArgument, name)
	}
	for _, dev := range reg.devs {
		if dev.name == name {
			return fmt.Errorf("%w: duplicate device %q", ErrInvalidArgument, name)
		}
	}
	addr := net.ParseIP(ip)
	if addr == nil || addr.To4() == nil {
		return fmt.Errorf("%w: missing or incorrect ip %q", ErrInvalidArgument, ip)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d not in [1, 65535]", ErrInvalidArgument, port)
	}
	if freq == 0 {
		return fmt.Errorf("%w: reference frequency must be positive", ErrInvalidArgument)
	}

	reg.devs = append(reg.devs, &Device{
		name: name,
		ip:   addr.To4(),
		port: port,
		freq: freq,
	})
	return nil
}

// Open returns the handle of the named device. Handles stay valid
// until Shutdown.
func (reg *Registry) Open(name string) (*Device, error) {
	if len(name) == 0 || len(name) >= nameLen {
		return nil, fmt.Errorf("%w: missing or incorrect name %q", ErrUnknownDevice, name)
	}
	for _, dev := range reg.devs {
		if dev.name == name {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
}

// Devices returns the handles of all configured devices, in
// configuration order.
func (reg *Registry) Devices() []*Device {
	devs := make([]*Device, len(reg.devs))
	copy(devs, reg.devs)
	return devs
}

// Init connects every configured device to its register gateway and,
// with the reset policy enabled, puts the card into a known state.
// A failing device is reported and does not keep the others from
// initializing; Init returns the first failure.
func (reg *Registry) Init(ctx context.Context) error {
	grp, _ := errgroup.WithContext(ctx)
	for i := range reg.devs {
		dev := reg.devs[i]
		grp.Go(func() error {
			err := reg.initDevice(dev)
			if err != nil {
				reg.msg.Printf("could not initialize device %q: %+v", dev.name, err)
				return err
			}
			return nil
		})
	}
	return grp.Wait()
}

func (reg *Registry) initDevice(dev *Device) error {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: dev.ip, Port: dev.port})
	if err != nil {
		return fmt.Errorf("%w: could not connect to %s: %v", ErrSocket, dev.Addr(), err)
	}

	dev.mu.Lock()
	dev.trx = transport{
		conn:    conn,
		timeout: reg.cfg.timeout,
		retries: reg.cfg.retries,
	}
	dev.mu.Unlock()

	if reg.cfg.reset {
		err = dev.reset(reg.cfg.nreset)
		if err != nil {
			return fmt.Errorf("could not reset device: %w", err)
		}
	}
	return nil
}

// Shutdown closes all device sockets and drops the device records.
// Handles obtained from Open are invalid afterwards.
func (reg *Registry) Shutdown() error {
	var first error
	for _, dev := range reg.devs {
		dev.mu.Lock()
		err := dev.trx.close()
		dev.mu.Unlock()
		if err != nil && first == nil {
			first = fmt.Errorf("could not close device %q: %w", dev.name, err)
		}
	}
	reg.devs = nil
	return first
}

// Report writes a summary of all configured devices to w.
func (reg *Registry) Report(w io.Writer) {
	fmt.Fprintf(w, "=== EVG device report ===\n")
	for _, dev := range reg.devs {
		fmt.Fprintf(w, "found %s @ %s\n", dev.name, dev.Addr())
	}
	fmt.Fprintf(w, "=== end of EVG device report ===\n")
}
