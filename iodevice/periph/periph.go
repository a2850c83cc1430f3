// Package periph runs the elevator panel from plain GPIO pins through periph.io.
// Every card address used by the channel map is bound to a named pin; data
// writes on analog addresses are turned into a PWM duty cycle.
package periph

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"elevatorhw/channel"
	"elevatorhw/iodevice"
)

const (
	// Full scale of the card's 12 bit analog output.
	DefaultDataMax = 4095
	DefaultPWMFreq = 1 * physic.KiloHertz
)

var (
	ErrUnmapped   = errors.New("address not bound to a pin")
	ErrNotAnalog  = errors.New("address is not a PWM pin")
	ErrNotDigital = errors.New("address is a PWM pin")
)

// Pin is the part of gpio.PinIO the backend uses.
type Pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
	Halt() error
}

// Config binds card addresses to pin names as known by gpioreg, e.g.
// "GPIO17".
type Config struct {
	Inputs  map[channel.Address]string
	Outputs map[channel.Address]string
	Analog  map[channel.Address]string
	DataMax uint
	PWMFreq physic.Frequency
}

type pinsFile struct {
	Inputs  map[string]string `json:"inputs"`
	Outputs map[string]string `json:"outputs"`
	Analog  map[string]string `json:"analog"`
	DataMax uint              `json:"data_max"`
	PWMHz   int64             `json:"pwm_hz"`
}

// LoadConfig reads a JSON pin table of the form
//
//	{"inputs": {"3:22": "GPIO5"}, "outputs": {"3:14": "GPIO6"}, "analog": {"1:0": "GPIO12"}}
//
// where keys are "subdevice:channel".
func LoadConfig(r io.Reader) (Config, error) {
	var f pinsFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Config{}, errors.Wrap(err, "periph: decode pin table")
	}
	cfg := Config{DataMax: f.DataMax, PWMFreq: physic.Frequency(f.PWMHz) * physic.Hertz}
	var err error
	if cfg.Inputs, err = parsePins(f.Inputs); err != nil {
		return Config{}, err
	}
	if cfg.Outputs, err = parsePins(f.Outputs); err != nil {
		return Config{}, err
	}
	if cfg.Analog, err = parsePins(f.Analog); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parsePins(in map[string]string) (map[channel.Address]string, error) {
	out := make(map[channel.Address]string, len(in))
	for k, name := range in {
		var a channel.Address
		if _, err := fmt.Sscanf(k, "%d:%d", &a.Subdevice, &a.Channel); err != nil {
			return nil, errors.Wrapf(err, "periph: bad address %q", k)
		}
		out[a] = name
	}
	return out, nil
}

type Device struct {
	cfg Config

	mu      sync.Mutex
	pins    map[channel.Address]Pin
	analog  map[channel.Address]bool
	outputs []channel.Address
	last    map[channel.Address]uint
	closed  bool
}

// Open initialises the host drivers and looks every pin up in gpioreg.
func Open(cfg Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph: host init")
	}
	return New(cfg, func(name string) Pin {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil
		}
		return p
	})
}

// Opener adapts Open to iodevice.Opener. The device name is only used in
// error messages; the pins come from cfg.
func Opener(cfg Config) iodevice.Opener {
	return func(name string) (iodevice.Device, error) {
		d, err := Open(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", name)
		}
		return d, nil
	}
}

// New builds a Device using lookup to find pins by name. Inputs are
// configured floating, outputs are driven low.
func New(cfg Config, lookup func(name string) Pin) (*Device, error) {
	if cfg.DataMax == 0 {
		cfg.DataMax = DefaultDataMax
	}
	if cfg.PWMFreq == 0 {
		cfg.PWMFreq = DefaultPWMFreq
	}
	d := &Device{
		cfg:    cfg,
		pins:   make(map[channel.Address]Pin),
		analog: make(map[channel.Address]bool),
		last:   make(map[channel.Address]uint),
	}

	get := func(a channel.Address, name string) (Pin, error) {
		if _, dup := d.pins[a]; dup {
			return nil, errors.Errorf("periph: address %v bound twice", a)
		}
		p := lookup(name)
		if p == nil {
			return nil, errors.Errorf("periph: no pin named %q for %v", name, a)
		}
		d.pins[a] = p
		return p, nil
	}

	for _, a := range sortedAddrs(cfg.Inputs) {
		p, err := get(a, cfg.Inputs[a])
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
			return nil, errors.Wrapf(err, "periph: configure input %v", a)
		}
	}
	for _, a := range sortedAddrs(cfg.Outputs) {
		p, err := get(a, cfg.Outputs[a])
		if err != nil {
			return nil, err
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, errors.Wrapf(err, "periph: configure output %v", a)
		}
		d.outputs = append(d.outputs, a)
	}
	for _, a := range sortedAddrs(cfg.Analog) {
		p, err := get(a, cfg.Analog[a])
		if err != nil {
			return nil, err
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, errors.Wrapf(err, "periph: configure pwm %v", a)
		}
		d.analog[a] = true
		d.outputs = append(d.outputs, a)
	}
	return d, nil
}

func sortedAddrs(m map[channel.Address]string) []channel.Address {
	out := make([]channel.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Packed() < out[j].Packed() })
	return out
}

func ioErr(op iodevice.Op, a channel.Address, err error) error {
	return &iodevice.DeviceIoError{Op: op, Subdevice: a.Subdevice, Channel: a.Channel, Err: err}
}

func (d *Device) pin(op iodevice.Op, a channel.Address, wantAnalog bool) (Pin, error) {
	if d.closed {
		return nil, ioErr(op, a, errors.New("device closed"))
	}
	p, ok := d.pins[a]
	if !ok {
		return nil, ioErr(op, a, ErrUnmapped)
	}
	if d.analog[a] != wantAnalog {
		if wantAnalog {
			return nil, ioErr(op, a, ErrNotAnalog)
		}
		return nil, ioErr(op, a, ErrNotDigital)
	}
	return p, nil
}

func (d *Device) DigitalWrite(subdevice, ch uint, bit bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := channel.Address{Subdevice: subdevice, Channel: ch}
	p, err := d.pin(iodevice.OpDigitalWrite, a, false)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Level(bit)); err != nil {
		return ioErr(iodevice.OpDigitalWrite, a, err)
	}
	return nil
}

func (d *Device) DigitalRead(subdevice, ch uint) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := channel.Address{Subdevice: subdevice, Channel: ch}
	p, err := d.pin(iodevice.OpDigitalRead, a, false)
	if err != nil {
		return false, err
	}
	return bool(p.Read()), nil
}

// Duty converts a card data value into a PWM duty cycle.
func (d *Device) Duty(value uint) gpio.Duty {
	if value >= d.cfg.DataMax {
		return gpio.DutyMax
	}
	return gpio.Duty(uint64(value) * uint64(gpio.DutyMax) / uint64(d.cfg.DataMax))
}

// DataWrite sets the PWM duty on an analog pin. range and aref have no
// meaning for GPIO and are ignored.
func (d *Device) DataWrite(subdevice, ch, rng, aref uint, value uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := channel.Address{Subdevice: subdevice, Channel: ch}
	p, err := d.pin(iodevice.OpDataWrite, a, true)
	if err != nil {
		return err
	}
	if value == 0 {
		err = p.Out(gpio.Low)
	} else {
		err = p.PWM(d.Duty(value), d.cfg.PWMFreq)
	}
	if err != nil {
		return ioErr(iodevice.OpDataWrite, a, err)
	}
	d.last[a] = value
	return nil
}

// DataRead returns the value last written to an analog pin; there is no ADC.
func (d *Device) DataRead(subdevice, ch, rng, aref uint) (uint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := channel.Address{Subdevice: subdevice, Channel: ch}
	if _, err := d.pin(iodevice.OpDataRead, a, true); err != nil {
		return 0, err
	}
	return d.last[a], nil
}

// Close drives every output low and halts it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	var first error
	for _, a := range d.outputs {
		p := d.pins[a]
		if err := p.Out(gpio.Low); err != nil && first == nil {
			first = errors.Wrapf(err, "periph: release %v", a)
		}
		if err := p.Halt(); err != nil && first == nil {
			first = errors.Wrapf(err, "periph: halt %v", a)
		}
	}
	return first
}
