// Package channel resolves logical elevator signals to (subdevice, channel)
// addresses on the I/O card.
package channel

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

const N_Buttons = 3

type ButtonType int

const (
	BT_HallUp   ButtonType = 0
	BT_HallDown ButtonType = 1
	BT_Cab      ButtonType = 2
)

func (b ButtonType) String() string {
	switch b {
	case BT_HallUp:
		return "HallUp"
	case BT_HallDown:
		return "HallDown"
	case BT_Cab:
		return "Cab"
	default:
		return fmt.Sprintf("ButtonType(%d)", int(b))
	}
}

type Kind int

const (
	Motor Kind = iota
	MotorDir
	FloorSensor
	ButtonInput
	ButtonLamp
	StopButton
	StopLamp
	Obstruction
	DoorLamp
	FloorIndicatorLow
	FloorIndicatorHigh
)

var kindNames = map[Kind]string{
	Motor:              "motor",
	MotorDir:           "motor direction",
	FloorSensor:        "floor sensor",
	ButtonInput:        "button",
	ButtonLamp:         "button lamp",
	StopButton:         "stop button",
	StopLamp:           "stop lamp",
	Obstruction:        "obstruction switch",
	DoorLamp:           "door lamp",
	FloorIndicatorLow:  "floor indicator bit 0",
	FloorIndicatorHigh: "floor indicator bit 1",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) hasFloor() bool {
	return k == FloorSensor || k == ButtonInput || k == ButtonLamp
}

func (k Kind) hasButton() bool {
	return k == ButtonInput || k == ButtonLamp
}

// Signal names one physical line. Button is only meaningful for button
// inputs and lamps, Floor for those and floor sensors.
type Signal struct {
	Kind   Kind
	Button ButtonType
	Floor  int
}

func (s Signal) String() string {
	switch {
	case s.Kind.hasButton():
		return fmt.Sprintf("%v %v at floor %d", s.Kind, s.Button, s.Floor)
	case s.Kind.hasFloor():
		return fmt.Sprintf("%v at floor %d", s.Kind, s.Floor)
	default:
		return s.Kind.String()
	}
}

func Lamp(b ButtonType, floor int) Signal {
	return Signal{Kind: ButtonLamp, Button: b, Floor: floor}
}

func Button(b ButtonType, floor int) Signal {
	return Signal{Kind: ButtonInput, Button: b, Floor: floor}
}

func Sensor(floor int) Signal {
	return Signal{Kind: FloorSensor, Floor: floor}
}

// InvalidSignalError reports a signal with no physical line, such as a
// hall down button on the ground floor.
type InvalidSignalError struct {
	Signal Signal
}

func (e *InvalidSignalError) Error() string {
	return "channel: no such signal: " + e.Signal.String()
}

type Address struct {
	Subdevice uint
	Channel   uint
}

// Unpack splits a packed channel number (subdevice<<8 + channel).
func Unpack(ch int) Address {
	return Address{Subdevice: uint(ch >> 8), Channel: uint(ch & 0xff)}
}

func (a Address) Packed() int {
	return int(a.Subdevice<<8 | a.Channel)
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%d", a.Subdevice, a.Channel)
}

type Binding struct {
	Signal  Signal
	Address Address
}

// ValidButton reports whether a button of type b exists at floor: there is
// no hall down button on the ground floor and no hall up button on the top
// floor.
func ValidButton(numFloors int, b ButtonType, floor int) bool {
	if floor < 0 || floor >= numFloors {
		return false
	}
	switch b {
	case BT_HallUp:
		return floor != numFloors-1
	case BT_HallDown:
		return floor != 0
	case BT_Cab:
		return true
	default:
		return false
	}
}

// Map is an immutable signal to address table.
type Map struct {
	numFloors int
	table     map[Signal]Address
}

// NewMap checks the table and builds a Map from it. Every button that can
// exist on a car with numFloors floors needs both an input and a lamp, every
// floor needs a sensor, and the motor, motor direction, stop button and stop
// lamp must be present. No address may be bound twice.
func NewMap(numFloors int, bindings []Binding) (*Map, error) {
	if numFloors < 2 {
		return nil, errors.Errorf("channel: need at least 2 floors, got %d", numFloors)
	}

	m := &Map{numFloors: numFloors, table: make(map[Signal]Address, len(bindings))}
	owner := make(map[Address]Signal, len(bindings))

	for _, b := range bindings {
		s := b.Signal
		if _, ok := kindNames[s.Kind]; !ok {
			return nil, errors.Errorf("channel: unknown signal kind %d", int(s.Kind))
		}
		if !s.Kind.hasButton() {
			s.Button = 0
		}
		if !s.Kind.hasFloor() {
			s.Floor = 0
		}
		if s.Kind.hasButton() && !ValidButton(numFloors, s.Button, s.Floor) {
			return nil, errors.Wrap(&InvalidSignalError{Signal: s}, "channel: bad binding")
		}
		if s.Kind == FloorSensor && (s.Floor < 0 || s.Floor >= numFloors) {
			return nil, errors.Wrap(&InvalidSignalError{Signal: s}, "channel: bad binding")
		}
		if _, dup := m.table[s]; dup {
			return nil, errors.Errorf("channel: %v bound twice", s)
		}
		if other, dup := owner[b.Address]; dup {
			return nil, errors.Errorf("channel: address %v bound to both %v and %v", b.Address, other, s)
		}
		m.table[s] = b.Address
		owner[b.Address] = s
	}

	for _, s := range required(numFloors) {
		if _, ok := m.table[s]; !ok {
			return nil, errors.Errorf("channel: %v has no address", s)
		}
	}
	return m, nil
}

func required(numFloors int) []Signal {
	req := []Signal{{Kind: Motor}, {Kind: MotorDir}, {Kind: StopButton}, {Kind: StopLamp}}
	for f := 0; f < numFloors; f++ {
		req = append(req, Sensor(f))
		for b := BT_HallUp; b <= BT_Cab; b++ {
			if ValidButton(numFloors, b, f) {
				req = append(req, Button(b, f), Lamp(b, f))
			}
		}
	}
	return req
}

func (m *Map) NumFloors() int {
	return m.numFloors
}

// Resolve returns the address of s, or an *InvalidSignalError if s does not
// exist on this car.
func (m *Map) Resolve(s Signal) (Address, error) {
	if a, ok := m.table[s]; ok {
		return a, nil
	}
	return Address{}, &InvalidSignalError{Signal: s}
}

func (m *Map) Lamp(b ButtonType, floor int) (Address, error) {
	return m.Resolve(Lamp(b, floor))
}

func (m *Map) Button(b ButtonType, floor int) (Address, error) {
	return m.Resolve(Button(b, floor))
}

func (m *Map) FloorSensor(floor int) (Address, error) {
	return m.Resolve(Sensor(floor))
}

func (m *Map) Has(s Signal) bool {
	_, ok := m.table[s]
	return ok
}

// Signals lists every bound signal ordered by kind, button and floor.
func (m *Map) Signals() []Signal {
	out := make([]Signal, 0, len(m.table))
	for s := range m.table {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Button != b.Button {
			return a.Button < b.Button
		}
		return a.Floor < b.Floor
	})
	return out
}
