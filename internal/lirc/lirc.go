// Package lirc drives a Linux LIRC transmit device.
package lirc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ioctl requests, group 'i'
const (
	getFeatures        = 0x80046900
	setSendCarrier     = 0x40046913
	setSendDutyCycle   = 0x40046915
	setTransmitterMask = 0x40046917
)

// feature bits
const (
	canSendPulse          = 0x2
	canSetSendCarrier     = 0x100
	canSetSendDutyCycle   = 0x200
	canSetTransmitterMask = 0x400
)

var (
	ErrNotLirc         = errors.New("not a lirc device")
	ErrSendUnsupported = errors.New("device does not support sending")
	ErrIncompleteSend  = errors.New("send incomplete")
	ErrEmptySignal     = errors.New("empty signal")
)

// TransmitterMaskError is returned when the driver rejects a mask; Count
// is the number of transmitters it reported instead.
type TransmitterMaskError struct {
	Count uint32
}

func (e *TransmitterMaskError) Error() string {
	return fmt.Sprintf("device only supports %d transmitters", e.Count)
}

// port is the open device file.
type port interface {
	getUint32(req uint) (uint32, error)
	// setUint32 passes a pointer to v and returns the ioctl result.
	setUint32(req uint, v uint32) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Device is an open LIRC character device. A Device is not safe for
// concurrent use.
type Device struct {
	port     port
	features uint32
}

// Open opens path read-write and queries its features. ErrNotLirc is
// returned when the feature query fails.
func Open(path string) (*Device, error) {
	p, err := openPort(path)
	if err != nil {
		return nil, err
	}
	d, err := newDevice(p)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func newDevice(p port) (*Device, error) {
	features, err := p.getUint32(getFeatures)
	if err != nil {
		return nil, ErrNotLirc
	}
	return &Device{port: p, features: features}, nil
}

func (d *Device) Close() error { return d.port.Close() }

func (d *Device) CanSend() bool               { return d.features&canSendPulse != 0 }
func (d *Device) CanSetSendCarrier() bool     { return d.features&canSetSendCarrier != 0 }
func (d *Device) CanSetSendDutyCycle() bool   { return d.features&canSetSendDutyCycle != 0 }
func (d *Device) CanSetTransmitterMask() bool { return d.features&canSetTransmitterMask != 0 }

// SetSendCarrier sets the carrier in Hz; 0 means unmodulated. Old kernels
// return the new carrier instead of 0, so the ioctl result is ignored.
func (d *Device) SetSendCarrier(carrier uint32) error {
	_, err := d.port.setUint32(setSendCarrier, carrier)
	return err
}

// SetSendDutyCycle sets the duty cycle in percent.
func (d *Device) SetSendDutyCycle(dutyCycle uint32) error {
	if dutyCycle <= 1 || dutyCycle >= 100 {
		return fmt.Errorf("duty cycle %d%% out of range", dutyCycle)
	}
	_, err := d.port.setUint32(setSendDutyCycle, dutyCycle)
	return err
}

// NumTransmitters asks the driver for its transmitter count by setting an
// invalid mask.
func (d *Device) NumTransmitters() (uint32, error) {
	n, err := d.port.setUint32(setTransmitterMask, ^uint32(0))
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func (d *Device) SetTransmitterMask(mask uint32) error {
	n, err := d.port.setUint32(setTransmitterMask, mask)
	if err != nil {
		return err
	}
	if n != 0 {
		return &TransmitterMaskError{Count: uint32(n)}
	}
	return nil
}

// Send writes a pulse/space sequence, starting with a pulse, in
// microseconds.
func (d *Device) Send(data []uint32) error {
	if !d.CanSend() {
		return ErrSendUnsupported
	}
	buf, err := Marshal(data)
	if err != nil {
		return err
	}
	n, err := d.port.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("wrote %d of %d bytes: %w", n, len(buf), ErrIncompleteSend)
	}
	return nil
}

// Marshal encodes data as native-endian 32-bit records. The driver wants
// a sequence ending in a pulse, so a trailing space (even length) is not
// written.
func Marshal(data []uint32) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, ErrEmptySignal
	}
	if n%2 == 0 {
		n--
	}
	buf := make([]byte, 0, n*4)
	for _, v := range data[:n] {
		buf = binary.NativeEndian.AppendUint32(buf, v)
	}
	return buf, nil
}
