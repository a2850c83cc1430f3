// Package iodevice defines the four primitive operations of a digital/analog
// I/O card. Backends live in the sub-packages.
package iodevice

import (
	"fmt"
)

// Device is an open session with an I/O card. Implementations are not
// required to be safe for concurrent use.
type Device interface {
	DigitalWrite(subdevice, channel uint, bit bool) error
	DigitalRead(subdevice, channel uint) (bool, error)
	DataWrite(subdevice, channel, rng, aref uint, value uint) error
	DataRead(subdevice, channel, rng, aref uint) (uint, error)
	Close() error
}

// Opener opens the device identified by name, e.g. "/dev/comedi0".
type Opener func(name string) (Device, error)

type Op string

const (
	OpDigitalWrite Op = "dio write"
	OpDigitalRead  Op = "dio read"
	OpDataWrite    Op = "data write"
	OpDataRead     Op = "data read"
)

// DeviceIoError is returned when a primitive call fails.
type DeviceIoError struct {
	Op        Op
	Subdevice uint
	Channel   uint
	Err       error
}

func (e *DeviceIoError) Error() string {
	return fmt.Sprintf("iodevice: %s %d:%d: %v", e.Op, e.Subdevice, e.Channel, e.Err)
}

func (e *DeviceIoError) Cause() error  { return e.Err }
func (e *DeviceIoError) Unwrap() error { return e.Err }
