// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import (
	"fmt"
	"math"
	"net"
	"sync"

	"github.com/go-daq/evg230/evg/internal/regs"
)

// Device is one configured VME-EVG230 card.
//
// A Device is created by Registry.Configure and owns a connected UDP
// endpoint to the card's register gateway after Registry.Init. Every
// operation takes the device lock for the whole register sequence it
// performs, so multi-register protocols (the address-latched sequence
// RAM and counter accesses) never interleave.
type Device struct {
	name string
	ip   net.IP
	port int
	freq uint32 // reference frequency, in Hz

	mu  sync.Mutex
	trx transport
}

// Name returns the configured device name.
func (dev *Device) Name() string { return dev.name }

// Frequency returns the configured reference frequency, in Hz.
func (dev *Device) Frequency() uint32 { return dev.freq }

// Addr returns the endpoint of the device's register gateway.
func (dev *Device) Addr() string {
	return fmt.Sprintf("%s:%d", dev.ip, dev.port)
}

func (dev *Device) String() string {
	return fmt.Sprintf("%s @ %s", dev.name, dev.Addr())
}

// register I/O. callers must hold dev.mu.

func (dev *Device) readReg(reg uint16) (uint16, error) {
	if dev.trx.conn == nil {
		return 0, fmt.Errorf("%w: device %q not initialized", ErrSocket, dev.name)
	}
	rep, err := dev.trx.exchange(readRequest(reg))
	if err != nil {
		return 0, fmt.Errorf("could not read register 0x%02x: %w", reg, err)
	}
	return rep.data, nil
}

func (dev *Device) writeReg(reg, data uint16) error {
	if dev.trx.conn == nil {
		return fmt.Errorf("%w: device %q not initialized", ErrSocket, dev.name)
	}
	_, err := dev.trx.exchange(writeRequest(reg, data))
	if err != nil {
		return fmt.Errorf("could not write register 0x%02x: %w", reg, err)
	}
	return nil
}

// writeCheckReg writes data to reg and reads it back. The card is
// write-through with some sticky bits; the read-back is the only
// in-band consistency check available.
func (dev *Device) writeCheckReg(reg, data uint16) error {
	err := dev.writeReg(reg, data)
	if err != nil {
		return err
	}
	v, err := dev.readReg(reg)
	if err != nil {
		return err
	}
	if v != data {
		return fmt.Errorf("%w: register 0x%02x (got=0x%04X, want=0x%04X)",
			ErrVerifyMismatch, reg, v, data,
		)
	}
	return nil
}

// seqRegs maps a sequencer index to its address, code and timestamp
// registers.
func seqRegs(n int) (addr, code, tstamp uint16, ok bool) {
	switch n {
	case 0:
		return regs.SEQ_ADDRESS0, regs.SEQ_CODE0, regs.SEQ_TIME0, true
	case 1:
		return regs.SEQ_ADDRESS1, regs.SEQ_CODE1, regs.SEQ_TIME1, true
	}
	return 0, 0, 0, false
}

// Enable switches the event generator master enable. The upstream
// receiver stays disabled either way.
func (dev *Device) Enable(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	v := uint16(regs.CONTROL_DISABLE)
	if on {
		v = regs.CONTROL_ENABLE
	}
	return dev.writeReg(regs.CONTROL, v)
}

// IsEnabled reports whether the event generator is enabled.
func (dev *Device) IsEnabled() (bool, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.CONTROL)
	if err != nil {
		return false, err
	}
	return v&regs.CONTROL_DISABLE_BIT == 0, nil
}

// SetRFClockSource selects the reference feeding the RF event clock.
func (dev *Device) SetRFClockSource(src ClockSource) error {
	if src != ClockInternal && src != ClockExternal {
		return fmt.Errorf("%w: invalid RF clock source %d", ErrInvalidArgument, src)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.RF_CONTROL)
	if err != nil {
		return err
	}
	switch src {
	case ClockInternal:
		v &^= regs.RF_CONTROL_EXTERNAL
	case ClockExternal:
		v |= regs.RF_CONTROL_EXTERNAL
	}
	return dev.writeCheckReg(regs.RF_CONTROL, v)
}

// GetRFClockSource returns the reference feeding the RF event clock.
func (dev *Device) GetRFClockSource() (ClockSource, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.RF_CONTROL)
	if err != nil {
		return 0, err
	}
	if v&regs.RF_CONTROL_EXTERNAL != 0 {
		return ClockExternal, nil
	}
	return ClockInternal, nil
}

// SetRFPrescaler sets the divider applied to the RF reference.
// The divider field stores prescaler-1. Valid prescalers are 1..31.
func (dev *Device) SetRFPrescaler(prescaler uint8) error {
	if prescaler < 1 || prescaler > 31 {
		return fmt.Errorf("%w: RF prescaler %d not in [1, 31]", ErrInvalidArgument, prescaler)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.RF_CONTROL)
	if err != nil {
		return err
	}
	v &^= regs.RF_CONTROL_DIVIDER_MASK
	return dev.writeCheckReg(regs.RF_CONTROL, v|uint16(prescaler-1))
}

// GetRFPrescaler returns the divider applied to the RF reference,
// undoing the -1 offset of the divider field so that a value set with
// SetRFPrescaler reads back unchanged.
func (dev *Device) GetRFPrescaler() (uint8, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.RF_CONTROL)
	if err != nil {
		return 0, err
	}
	return uint8(v&regs.RF_CONTROL_DIVIDER_MASK) + 1, nil
}

// SetACPrescaler sets the divider of the AC trigger clock.
func (dev *Device) SetACPrescaler(prescaler uint8) error {
	if prescaler < 1 {
		return fmt.Errorf("%w: AC prescaler %d not in [1, 255]", ErrInvalidArgument, prescaler)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.AC_ENABLE)
	if err != nil {
		return err
	}
	v &^= regs.AC_ENABLE_DIVIDER_MASK
	return dev.writeCheckReg(regs.AC_ENABLE, v|uint16(prescaler))
}

// GetACPrescaler returns the divider of the AC trigger clock.
func (dev *Device) GetACPrescaler() (uint8, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.AC_ENABLE)
	if err != nil {
		return 0, err
	}
	return uint8(v & regs.AC_ENABLE_DIVIDER_MASK), nil
}

// SetACSyncSource selects what the AC trigger logic synchronizes to:
// the event clock (SyncEvent) or multiplexed counter 7 (SyncMXC7).
func (dev *Device) SetACSyncSource(src SyncSource) error {
	if src != SyncEvent && src != SyncMXC7 {
		return fmt.Errorf("%w: invalid AC sync source %d", ErrInvalidArgument, src)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.AC_ENABLE)
	if err != nil {
		return err
	}
	switch src {
	case SyncEvent:
		v &^= regs.AC_ENABLE_SYNC
	case SyncMXC7:
		v |= regs.AC_ENABLE_SYNC
	}
	return dev.writeCheckReg(regs.AC_ENABLE, v)
}

// GetACSyncSource returns what the AC trigger logic synchronizes to.
func (dev *Device) GetACSyncSource() (SyncSource, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.AC_ENABLE)
	if err != nil {
		return 0, err
	}
	if v&regs.AC_ENABLE_SYNC != 0 {
		return SyncMXC7, nil
	}
	return SyncEvent, nil
}

// EnableSequencer switches sequencer n on or off.
func (dev *Device) EnableSequencer(n int, on bool) error {
	bit, err := seqEnableBit(n)
	if err != nil {
		return err
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.EVENT_ENABLE)
	if err != nil {
		return err
	}
	if on {
		v |= bit
	} else {
		v &^= bit
	}
	return dev.writeReg(regs.EVENT_ENABLE, v)
}

// IsSequencerEnabled reports whether sequencer n is enabled.
func (dev *Device) IsSequencerEnabled(n int) (bool, error) {
	bit, err := seqEnableBit(n)
	if err != nil {
		return false, err
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.EVENT_ENABLE)
	if err != nil {
		return false, err
	}
	return v&bit != 0, nil
}

func seqEnableBit(n int) (uint16, error) {
	switch n {
	case 0:
		return regs.EVENT_ENABLE_SEQUENCER0, nil
	case 1:
		return regs.EVENT_ENABLE_SEQUENCER1, nil
	}
	return 0, fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
}

// SetSequencerTriggerSource selects what starts sequencer n: the
// software trigger (TriggerSoft) or the AC trigger logic (TriggerAC).
func (dev *Device) SetSequencerTriggerSource(n int, src TriggerSource) error {
	acbit, err := seqACBit(n)
	if err != nil {
		return err
	}
	if src != TriggerSoft && src != TriggerAC {
		return fmt.Errorf("%w: invalid trigger source %d", ErrInvalidArgument, src)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	ev, err := dev.readReg(regs.EVENT_ENABLE)
	if err != nil {
		return err
	}
	ac, err := dev.readReg(regs.AC_ENABLE)
	if err != nil {
		return err
	}
	switch src {
	case TriggerSoft:
		ev |= regs.EVENT_ENABLE_VME
		ac &^= acbit
	case TriggerAC:
		ev &^= regs.EVENT_ENABLE_VME
		ac |= acbit
	}
	err = dev.writeReg(regs.EVENT_ENABLE, ev)
	if err != nil {
		return err
	}
	return dev.writeReg(regs.AC_ENABLE, ac)
}

// GetSequencerTriggerSource returns what starts sequencer n.
func (dev *Device) GetSequencerTriggerSource(n int) (TriggerSource, error) {
	acbit, err := seqACBit(n)
	if err != nil {
		return 0, err
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	ac, err := dev.readReg(regs.AC_ENABLE)
	if err != nil {
		return 0, err
	}
	if ac&acbit != 0 {
		return TriggerAC, nil
	}
	return TriggerSoft, nil
}

func seqACBit(n int) (uint16, error) {
	switch n {
	case 0:
		return regs.AC_ENABLE_SEQ0, nil
	case 1:
		return regs.AC_ENABLE_SEQ1, nil
	}
	return 0, fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
}

// SetSequencerPrescaler sets the divider of sequencer n's clock.
func (dev *Device) SetSequencerPrescaler(n int, prescaler uint16) error {
	reg, err := seqClockReg(n)
	if err != nil {
		return err
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.writeCheckReg(reg, prescaler)
}

// GetSequencerPrescaler returns the divider of sequencer n's clock.
func (dev *Device) GetSequencerPrescaler(n int) (uint16, error) {
	reg, err := seqClockReg(n)
	if err != nil {
		return 0, err
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.readReg(reg)
}

func seqClockReg(n int) (uint16, error) {
	switch n {
	case 0:
		return regs.SEQ_CLOCK_SEL1, nil
	case 1:
		return regs.SEQ_CLOCK_SEL2, nil
	}
	return 0, fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
}

// TriggerSequencer pulses the software trigger of sequencer n.
func (dev *Device) TriggerSequencer(n int) error {
	var bit uint16
	switch n {
	case 0:
		bit = regs.CONTROL_VTRG1
	case 1:
		bit = regs.CONTROL_VTRG2
	default:
		return fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.readReg(regs.CONTROL)
	if err != nil {
		return err
	}
	// trigger bits self-clear, no read-back.
	return dev.writeReg(regs.CONTROL, v|bit)
}

// SetEvent stores an event code at the given sequence RAM address of
// sequencer n. The code 0x7F terminates the sequence.
func (dev *Device) SetEvent(n int, addr uint16, code uint8) error {
	areg, creg, _, ok := seqRegs(n)
	if !ok {
		return fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
	}
	if addr > MaxEventAddress {
		return fmt.Errorf("%w: event address %d not in [0, %d]", ErrInvalidArgument, addr, MaxEventAddress)
	}
	if code > MaxEventCode {
		return fmt.Errorf("%w: event code 0x%X not in [0, 0x%X]", ErrInvalidArgument, code, MaxEventCode)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.writeCheckReg(areg, addr)
	if err != nil {
		return err
	}
	return dev.writeCheckReg(creg, uint16(code))
}

// GetEvent returns the event code stored at the given sequence RAM
// address of sequencer n.
func (dev *Device) GetEvent(n int, addr uint16) (uint8, error) {
	areg, creg, _, ok := seqRegs(n)
	if !ok {
		return 0, fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
	}
	if addr > MaxEventAddress {
		return 0, fmt.Errorf("%w: event address %d not in [0, %d]", ErrInvalidArgument, addr, MaxEventAddress)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.writeCheckReg(areg, addr)
	if err != nil {
		return 0, err
	}
	v, err := dev.readReg(creg)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// SetTimestamp stores a timestamp at the given sequence RAM address of
// sequencer n. The timestamp is given in seconds and converted to
// cycles of the device's reference clock; it must fit in 32 bits of
// cycles.
func (dev *Device) SetTimestamp(n int, addr uint16, seconds float64) error {
	areg, _, treg, ok := seqRegs(n)
	if !ok {
		return fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
	}
	if addr > MaxEventAddress {
		return fmt.Errorf("%w: event address %d not in [0, %d]", ErrInvalidArgument, addr, MaxEventAddress)
	}
	cycles := math.Round(seconds * float64(dev.freq))
	if cycles < 0 || cycles > math.MaxUint32 {
		return fmt.Errorf("%w: timestamp %v s overflows 32 bits of cycles at %d Hz",
			ErrInvalidArgument, seconds, dev.freq,
		)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.writeCheckReg(areg, addr)
	if err != nil {
		return err
	}
	c := uint32(cycles)
	err = dev.writeCheckReg(treg, uint16(c>>16))
	if err != nil {
		return err
	}
	return dev.writeCheckReg(treg+2, uint16(c))
}

// GetTimestamp returns the timestamp, in seconds, stored at the given
// sequence RAM address of sequencer n.
func (dev *Device) GetTimestamp(n int, addr uint16) (float64, error) {
	areg, _, treg, ok := seqRegs(n)
	if !ok {
		return 0, fmt.Errorf("%w: invalid sequencer %d", ErrInvalidArgument, n)
	}
	if addr > MaxEventAddress {
		return 0, fmt.Errorf("%w: event address %d not in [0, %d]", ErrInvalidArgument, addr, MaxEventAddress)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.writeCheckReg(areg, addr)
	if err != nil {
		return 0, err
	}
	hi, err := dev.readReg(treg)
	if err != nil {
		return 0, err
	}
	lo, err := dev.readReg(treg + 2)
	if err != nil {
		return 0, err
	}
	cycles := uint32(hi)<<16 | uint32(lo)
	return float64(cycles) / float64(dev.freq), nil
}

// SetCounterPrescaler sets the 32-bit prescaler of multiplexed counter
// c. The prescaler register is 16 bits wide; MXC_CONTROL selects the
// counter and which half the next access addresses.
func (dev *Device) SetCounterPrescaler(c uint8, prescaler uint32) error {
	if c >= NumCounters {
		return fmt.Errorf("%w: invalid counter %d", ErrInvalidArgument, c)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.writeCheckReg(regs.MXC_CONTROL, regs.MXC_CONTROL_HIGH_WORD|uint16(c))
	if err != nil {
		return err
	}
	err = dev.writeCheckReg(regs.MXC_PRESCALER, uint16(prescaler>>16))
	if err != nil {
		return err
	}
	err = dev.writeCheckReg(regs.MXC_CONTROL, uint16(c))
	if err != nil {
		return err
	}
	return dev.writeCheckReg(regs.MXC_PRESCALER, uint16(prescaler))
}

// GetCounterPrescaler returns the 32-bit prescaler of multiplexed
// counter c.
func (dev *Device) GetCounterPrescaler(c uint8) (uint32, error) {
	if c >= NumCounters {
		return 0, fmt.Errorf("%w: invalid counter %d", ErrInvalidArgument, c)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.writeCheckReg(regs.MXC_CONTROL, regs.MXC_CONTROL_HIGH_WORD|uint16(c))
	if err != nil {
		return 0, err
	}
	hi, err := dev.readReg(regs.MXC_PRESCALER)
	if err != nil {
		return 0, err
	}
	err = dev.writeCheckReg(regs.MXC_CONTROL, uint16(c))
	if err != nil {
		return 0, err
	}
	lo, err := dev.readReg(regs.MXC_PRESCALER)
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// FirmwareVersion returns the card's firmware version register.
func (dev *Device) FirmwareVersion() (uint16, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.readReg(regs.FIRMWARE)
}

// SetSoftwareEvent broadcasts an event code once, through the software
// event register.
func (dev *Device) SetSoftwareEvent(code uint8) error {
	if code > MaxEventCode {
		return fmt.Errorf("%w: event code 0x%X not in [0, 0x%X]", ErrInvalidArgument, code, MaxEventCode)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.writeReg(regs.SW_EVENT, uint16(code))
}

// reset puts the card into a known state. Called from Registry.Init
// with the reset policy enabled; the caller does not hold dev.mu, each
// step takes it on its own.
func (dev *Device) reset(nevents int) error {
	err := dev.Enable(false)
	if err != nil {
		return fmt.Errorf("could not disable device: %w", err)
	}
	for n := 0; n < NumSequencers; n++ {
		err = dev.EnableSequencer(n, false)
		if err != nil {
			return fmt.Errorf("could not disable sequencer %d: %w", n, err)
		}
		err = dev.SetSequencerPrescaler(n, 1)
		if err != nil {
			return fmt.Errorf("could not reset sequencer %d prescaler: %w", n, err)
		}
	}
	err = dev.SetACSyncSource(SyncEvent)
	if err != nil {
		return fmt.Errorf("could not reset AC sync source: %w", err)
	}
	err = dev.SetACPrescaler(50)
	if err != nil {
		return fmt.Errorf("could not reset AC prescaler: %w", err)
	}
	err = dev.SetRFPrescaler(4)
	if err != nil {
		return fmt.Errorf("could not reset RF prescaler: %w", err)
	}
	for n := 0; n < NumSequencers; n++ {
		for i := 0; i < nevents; i++ {
			err = dev.SetEvent(n, uint16(i), regs.END_EVENT)
			if err != nil {
				return fmt.Errorf("could not clear event %d/%d: %w", n, i, err)
			}
			err = dev.SetTimestamp(n, uint16(i), 0)
			if err != nil {
				return fmt.Errorf("could not clear timestamp %d/%d: %w", n, i, err)
			}
		}
	}
	return nil
}
