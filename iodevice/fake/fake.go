// Package fake provides an in-memory iodevice.Device for tests. It records
// every primitive call, lets the test drive input levels, can inject
// failures and counts calls that overlap in time.
package fake

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"elevatorhw/channel"
	"elevatorhw/iodevice"
)

var ErrClosed = errors.New("fake: device closed")

type Call struct {
	Op      iodevice.Op
	Address channel.Address
	Bit     bool
	Value   uint
	Range   uint
	Aref    uint
}

type failure struct {
	op   iodevice.Op
	addr channel.Address
}

type Device struct {
	// Latency is slept inside every call, widening the window in which
	// overlapping calls are caught.
	Latency time.Duration

	inFlight   int32
	overlapped int32

	mu       sync.Mutex
	digital  map[channel.Address]bool
	data     map[channel.Address]uint
	calls    []Call
	failures map[failure]error
	closed   bool
	closes   int
}

func New() *Device {
	return &Device{
		digital:  make(map[channel.Address]bool),
		data:     make(map[channel.Address]uint),
		failures: make(map[failure]error),
	}
}

// Opener returns an iodevice.Opener that hands out d for name and fails for
// anything else.
func Opener(name string, d *Device) iodevice.Opener {
	return func(n string) (iodevice.Device, error) {
		if n != name {
			return nil, errors.Errorf("fake: no such device %q", n)
		}
		return d, nil
	}
}

func (d *Device) enter() {
	if atomic.AddInt32(&d.inFlight, 1) > 1 {
		atomic.AddInt32(&d.overlapped, 1)
	}
	if d.Latency > 0 {
		time.Sleep(d.Latency)
	}
}

func (d *Device) leave() {
	atomic.AddInt32(&d.inFlight, -1)
}

// Overlaps returns how many calls started while another was in progress.
func (d *Device) Overlaps() int {
	return int(atomic.LoadInt32(&d.overlapped))
}

// SetInput drives the level seen by DigitalRead on a.
func (d *Device) SetInput(a channel.Address, level bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.digital[a] = level
}

// SetData sets the value seen by DataRead on a.
func (d *Device) SetData(a channel.Address, v uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[a] = v
}

func (d *Device) Level(a channel.Address) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.digital[a]
}

func (d *Device) Data(a channel.Address) uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data[a]
}

// Fail makes every op on a return err until cleared with a nil err.
func (d *Device) Fail(op iodevice.Op, a channel.Address, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, failure{op, a})
		return
	}
	d.failures[failure{op, a}] = err
}

func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// record logs c and returns the error to report for it, if any. d.mu must
// be held.
func (d *Device) record(c Call) error {
	if d.closed {
		return &iodevice.DeviceIoError{Op: c.Op, Subdevice: c.Address.Subdevice, Channel: c.Address.Channel, Err: ErrClosed}
	}
	d.calls = append(d.calls, c)
	if err, ok := d.failures[failure{c.Op, c.Address}]; ok {
		return &iodevice.DeviceIoError{Op: c.Op, Subdevice: c.Address.Subdevice, Channel: c.Address.Channel, Err: err}
	}
	return nil
}

func (d *Device) DigitalWrite(subdevice, ch uint, bit bool) error {
	d.enter()
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()

	a := channel.Address{Subdevice: subdevice, Channel: ch}
	if err := d.record(Call{Op: iodevice.OpDigitalWrite, Address: a, Bit: bit}); err != nil {
		return err
	}
	d.digital[a] = bit
	return nil
}

func (d *Device) DigitalRead(subdevice, ch uint) (bool, error) {
	d.enter()
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()

	a := channel.Address{Subdevice: subdevice, Channel: ch}
	if err := d.record(Call{Op: iodevice.OpDigitalRead, Address: a}); err != nil {
		return false, err
	}
	return d.digital[a], nil
}

func (d *Device) DataWrite(subdevice, ch, rng, aref uint, value uint) error {
	d.enter()
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()

	a := channel.Address{Subdevice: subdevice, Channel: ch}
	if err := d.record(Call{Op: iodevice.OpDataWrite, Address: a, Value: value, Range: rng, Aref: aref}); err != nil {
		return err
	}
	d.data[a] = value
	return nil
}

func (d *Device) DataRead(subdevice, ch, rng, aref uint) (uint, error) {
	d.enter()
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()

	a := channel.Address{Subdevice: subdevice, Channel: ch}
	if err := d.record(Call{Op: iodevice.OpDataRead, Address: a, Range: rng, Aref: aref}); err != nil {
		return 0, err
	}
	return d.data[a], nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	d.closed = true
	return nil
}
