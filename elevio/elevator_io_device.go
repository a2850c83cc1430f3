// Package elevio drives the elevator's motor, lamps and sensors through an
// I/O card. Every operation resolves its signal through a channel.Map and
// issues the primitive calls while holding the Elevator's lock, so at most
// one call is ever in flight against the device.
package elevio

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"elevatorhw/channel"
	"elevatorhw/config"
	"elevatorhw/hwlog"
	"elevatorhw/iodevice"
	"elevatorhw/iodevice/comedi"
)

var ErrClosed = errors.New("elevio: elevator closed")

// OpenError is returned when no device session could be set up.
type OpenError struct {
	Device string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("elevio: open %s: %v", e.Device, e.Err)
}

func (e *OpenError) Cause() error  { return e.Err }
func (e *OpenError) Unwrap() error { return e.Err }

type options struct {
	cfg    config.Config
	chmap  *channel.Map
	opener iodevice.Opener
}

type Option func(*options)

func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

func WithMap(m *channel.Map) Option {
	return func(o *options) { o.chmap = m }
}

// WithOpener replaces the comedi backend used by Open.
func WithOpener(op iodevice.Opener) Option {
	return func(o *options) { o.opener = op }
}

type Elevator struct {
	mu     sync.Mutex
	dev    iodevice.Device
	cfg    config.Config
	chmap  *channel.Map
	closed bool
}

// Open opens deviceName, by default through comedi, and returns an Elevator
// owning the session. On failure the error is an *OpenError and no Elevator
// is returned.
func Open(deviceName string, opts ...Option) (*Elevator, error) {
	o := options{opener: comedi.Open}
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := o.opener(deviceName)
	if err != nil {
		return nil, &OpenError{Device: deviceName, Err: err}
	}
	if dev == nil {
		return nil, &OpenError{Device: deviceName, Err: errors.New("no device returned")}
	}

	e, err := New(dev, opts...)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return e, nil
}

// New wraps an already open device. The Elevator takes ownership of dev.
func New(dev iodevice.Device, opts ...Option) (*Elevator, error) {
	o := options{cfg: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if dev == nil {
		return nil, &OpenError{Device: "<nil>", Err: errors.New("nil device")}
	}
	if o.chmap == nil {
		o.chmap = channel.ReferenceMap()
	}
	if o.chmap.NumFloors() != o.cfg.NumFloors {
		return nil, errors.Errorf("elevio: channel map has %d floors, config has %d", o.chmap.NumFloors(), o.cfg.NumFloors)
	}
	return &Elevator{dev: dev, cfg: o.cfg, chmap: o.chmap}, nil
}

func (e *Elevator) NumFloors() int {
	return e.cfg.NumFloors
}

func (e *Elevator) Map() *channel.Map {
	return e.chmap
}

// mustResolve panics with a *channel.InvalidSignalError if s has no line on
// this car. Asking for one is a bug in the caller.
func (e *Elevator) mustResolve(s channel.Signal) channel.Address {
	a, err := e.chmap.Resolve(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (e *Elevator) fail(what string, err error) error {
	hwlog.Red.Printf("elevio: %s: %v", what, err)
	return errors.Wrap(err, what)
}

func (e *Elevator) writeBit(what string, a channel.Address, on bool) error {
	if err := e.dev.DigitalWrite(a.Subdevice, a.Channel, on); err != nil {
		return e.fail(what, err)
	}
	return nil
}

func (e *Elevator) readBit(what string, a channel.Address) (bool, error) {
	on, err := e.dev.DigitalRead(a.Subdevice, a.Channel)
	if err != nil {
		return false, e.fail(what, err)
	}
	return on, nil
}

func (e *Elevator) writeMotor(v uint) error {
	a := e.mustResolve(channel.Signal{Kind: channel.Motor})
	if err := e.dev.DataWrite(a.Subdevice, a.Channel, e.cfg.DataRange, e.cfg.DataAref, v); err != nil {
		return e.fail("set motor speed", err)
	}
	return nil
}

// SetDirection starts the motor up or down at the configured speed, or stops
// it. Stopping leaves the direction line untouched.
func (e *Elevator) SetDirection(d Dirn) error {
	dir := e.mustResolve(channel.Signal{Kind: channel.MotorDir})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	switch d {
	case D_Up:
		if err := e.writeBit("set motor direction up", dir, false); err != nil {
			return err
		}
		return e.writeMotor(e.cfg.MotorSpeed)
	case D_Down:
		if err := e.writeBit("set motor direction down", dir, true); err != nil {
			return err
		}
		return e.writeMotor(e.cfg.MotorSpeed)
	case D_Stop:
		return e.writeMotor(0)
	default:
		panic(fmt.Sprintf("elevio: no such direction: %d", int(d)))
	}
}

// ReadFloorSensor returns the lowest floor whose sensor is active, or
// (-1, false) when the car is between floors.
func (e *Elevator) ReadFloorSensor() (int, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return -1, false, ErrClosed
	}

	for floor := 0; floor < e.cfg.NumFloors; floor++ {
		a := e.mustResolve(channel.Sensor(floor))
		on, err := e.readBit(fmt.Sprintf("read floor sensor %d", floor), a)
		if err != nil {
			return -1, false, err
		}
		if on {
			return floor, true, nil
		}
	}
	return -1, false, nil
}

// SetFloorButtonLamp panics with a *channel.InvalidSignalError if the button
// does not exist at floor.
func (e *Elevator) SetFloorButtonLamp(b ButtonType, floor int, on bool) error {
	s := channel.Lamp(b, floor)
	a := e.mustResolve(s)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.writeBit("set "+s.String(), a, on)
}

// ReadFloorButton reports whether the button is pressed right now. There is
// no debouncing. It panics like SetFloorButtonLamp on a button that does not
// exist.
func (e *Elevator) ReadFloorButton(b ButtonType, floor int) (bool, error) {
	s := channel.Button(b, floor)
	a := e.mustResolve(s)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrClosed
	}
	return e.readBit("read "+s.String(), a)
}

func (e *Elevator) setSingle(k channel.Kind, on bool) error {
	s := channel.Signal{Kind: k}
	a := e.mustResolve(s)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.writeBit("set "+s.String(), a, on)
}

func (e *Elevator) readSingle(k channel.Kind) (bool, error) {
	s := channel.Signal{Kind: k}
	a := e.mustResolve(s)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrClosed
	}
	return e.readBit("read "+s.String(), a)
}

func (e *Elevator) SetStopButtonLamp(on bool) error {
	return e.setSingle(channel.StopLamp, on)
}

func (e *Elevator) ReadStopButton() (bool, error) {
	return e.readSingle(channel.StopButton)
}

// SetDoorOpenLamp and ReadObstruction panic if the map has no door lamp or
// obstruction switch.
func (e *Elevator) SetDoorOpenLamp(on bool) error {
	return e.setSingle(channel.DoorLamp, on)
}

func (e *Elevator) ReadObstruction() (bool, error) {
	return e.readSingle(channel.Obstruction)
}

// SetFloorIndicator shows floor as a two bit number on the indicator lamps.
func (e *Elevator) SetFloorIndicator(floor int) error {
	if floor < 0 || floor >= e.cfg.NumFloors || floor > 3 {
		panic(fmt.Sprintf("elevio: no floor indicator for floor %d", floor))
	}
	low := e.mustResolve(channel.Signal{Kind: channel.FloorIndicatorLow})
	high := e.mustResolve(channel.Signal{Kind: channel.FloorIndicatorHigh})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.writeBit("set floor indicator", high, floor&2 != 0); err != nil {
		return err
	}
	return e.writeBit("set floor indicator", low, floor&1 != 0)
}

// ClearAllLamps turns off every button lamp, the stop lamp and, if present,
// the door lamp. It stops at the first failing write.
func (e *Elevator) ClearAllLamps() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	for floor := 0; floor < e.cfg.NumFloors; floor++ {
		for b := BT_HallUp; b <= BT_Cab; b++ {
			if !channel.ValidButton(e.cfg.NumFloors, b, floor) {
				continue
			}
			s := channel.Lamp(b, floor)
			if err := e.writeBit("clear "+s.String(), e.mustResolve(s), false); err != nil {
				return err
			}
		}
	}
	if err := e.writeBit("clear stop lamp", e.mustResolve(channel.Signal{Kind: channel.StopLamp}), false); err != nil {
		return err
	}
	door := channel.Signal{Kind: channel.DoorLamp}
	if e.chmap.Has(door) {
		return e.writeBit("clear door lamp", e.mustResolve(door), false)
	}
	return nil
}

// Close releases the device. Later calls return ErrClosed.
func (e *Elevator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.dev.Close(); err != nil {
		return errors.Wrap(err, "elevio: close device")
	}
	return nil
}
