package elevio

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"elevatorhw/channel"
	"elevatorhw/config"
	"elevatorhw/hwlog"
	"elevatorhw/iodevice"
	"elevatorhw/iodevice/fake"
)

const testDevice = "/dev/comedi0"

func TestMain(m *testing.M) {
	hwlog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestElevator(t *testing.T) (*Elevator, *fake.Device) {
	t.Helper()
	dev := fake.New()
	e, err := Open(testDevice, WithOpener(fake.Opener(testDevice, dev)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e, dev
}

func addr(ch int) channel.Address {
	return channel.Unpack(ch)
}

func TestOpenFailure(t *testing.T) {
	dev := fake.New()
	e, err := Open("/dev/nope", WithOpener(fake.Opener(testDevice, dev)))
	if e != nil {
		t.Fatal("Open returned an elevator on failure")
	}
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want *OpenError", err)
	}
	if oe.Device != "/dev/nope" {
		t.Fatalf("OpenError.Device = %q", oe.Device)
	}
}

func TestOpenWithoutComedi(t *testing.T) {
	// The default opener is comedi; without the comedi build tag or a card it
	// has to fail cleanly.
	e, err := Open("/dev/does-not-exist")
	if e != nil || err == nil {
		t.Fatalf("Open = %v, %v; want nil, error", e, err)
	}
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want *OpenError", err)
	}
}

func TestNewNilDevice(t *testing.T) {
	var oe *OpenError
	if _, err := New(nil); !errors.As(err, &oe) {
		t.Fatalf("New(nil) err = %v, want *OpenError", err)
	}
}

func TestFloorCountMismatchClosesDevice(t *testing.T) {
	dev := fake.New()
	cfg := config.Default()
	cfg.NumFloors = 3
	_, err := Open(testDevice, WithOpener(fake.Opener(testDevice, dev)), WithConfig(cfg))
	if err == nil {
		t.Fatal("expected error for 3-floor config with 4-floor map")
	}
	if !dev.Closed() {
		t.Fatal("device left open after failed construction")
	}
}

func TestSetDirection(t *testing.T) {
	tests := []struct {
		dir  Dirn
		want []fake.Call
	}{
		{D_Up, []fake.Call{
			{Op: iodevice.OpDigitalWrite, Address: addr(channel.MOTORDIR), Bit: false},
			{Op: iodevice.OpDataWrite, Address: addr(channel.MOTOR), Value: config.MotorSpeed},
		}},
		{D_Down, []fake.Call{
			{Op: iodevice.OpDigitalWrite, Address: addr(channel.MOTORDIR), Bit: true},
			{Op: iodevice.OpDataWrite, Address: addr(channel.MOTOR), Value: config.MotorSpeed},
		}},
		{D_Stop, []fake.Call{
			{Op: iodevice.OpDataWrite, Address: addr(channel.MOTOR), Value: 0},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			e, dev := newTestElevator(t)
			if err := e.SetDirection(tt.dir); err != nil {
				t.Fatalf("SetDirection: %v", err)
			}
			got := dev.Calls()
			if len(got) != len(tt.want) {
				t.Fatalf("calls = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("call %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSetDirectionCustomSpeed(t *testing.T) {
	dev := fake.New()
	cfg := config.Default()
	cfg.MotorSpeed = 1500
	e, err := New(dev, WithConfig(cfg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.SetDirection(D_Down); err != nil {
		t.Fatalf("SetDirection: %v", err)
	}
	if v := dev.Data(addr(channel.MOTOR)); v != 1500 {
		t.Fatalf("motor = %d, want 1500", v)
	}
}

func TestSetDirectionSurfacesWriteFailure(t *testing.T) {
	e, dev := newTestElevator(t)
	dev.Fail(iodevice.OpDataWrite, addr(channel.MOTOR), errors.New("bus error"))

	err := e.SetDirection(D_Up)
	var ioe *iodevice.DeviceIoError
	if !errors.As(err, &ioe) {
		t.Fatalf("err = %v, want *iodevice.DeviceIoError", err)
	}
	if ioe.Op != iodevice.OpDataWrite || ioe.Subdevice != 1 || ioe.Channel != 0 {
		t.Fatalf("unexpected error %+v", ioe)
	}
}

func TestSetDirectionUnknownPanics(t *testing.T) {
	e, dev := newTestElevator(t)
	defer func() {
		if recover() == nil {
			t.Fatal("no panic for unknown direction")
		}
		if len(dev.Calls()) != 0 {
			t.Fatal("device touched")
		}
	}()
	e.SetDirection(Dirn(5))
}

func TestReadFloorSensor(t *testing.T) {
	sensors := []int{channel.SENSOR_FLOOR0, channel.SENSOR_FLOOR1, channel.SENSOR_FLOOR2, channel.SENSOR_FLOOR3}

	t.Run("none", func(t *testing.T) {
		e, dev := newTestElevator(t)
		floor, ok, err := e.ReadFloorSensor()
		if err != nil || ok || floor != -1 {
			t.Fatalf("ReadFloorSensor = %d, %v, %v; want -1, false, nil", floor, ok, err)
		}
		if n := len(dev.Calls()); n != 4 {
			t.Fatalf("%d reads, want 4", n)
		}
	})

	for k := range sensors {
		e, dev := newTestElevator(t)
		dev.SetInput(addr(sensors[k]), true)
		floor, ok, err := e.ReadFloorSensor()
		if err != nil || !ok || floor != k {
			t.Fatalf("sensor %d active: got %d, %v, %v", k, floor, ok, err)
		}
		if n := len(dev.Calls()); n != k+1 {
			t.Fatalf("sensor %d active: %d reads, want %d", k, n, k+1)
		}
	}

	t.Run("lowest wins", func(t *testing.T) {
		e, dev := newTestElevator(t)
		dev.SetInput(addr(channel.SENSOR_FLOOR0), true)
		dev.SetInput(addr(channel.SENSOR_FLOOR2), true)
		floor, ok, err := e.ReadFloorSensor()
		if err != nil || !ok || floor != 0 {
			t.Fatalf("got %d, %v, %v; want 0", floor, ok, err)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		e, dev := newTestElevator(t)
		dev.Fail(iodevice.OpDigitalRead, addr(channel.SENSOR_FLOOR1), errors.New("timeout"))
		_, ok, err := e.ReadFloorSensor()
		var ioe *iodevice.DeviceIoError
		if ok || !errors.As(err, &ioe) {
			t.Fatalf("got ok=%v err=%v", ok, err)
		}
	})
}

func TestButtonRoundTrip(t *testing.T) {
	e, dev := newTestElevator(t)
	m := e.Map()

	for floor := 0; floor < e.NumFloors(); floor++ {
		for b := BT_HallUp; b <= BT_Cab; b++ {
			if !channel.ValidButton(e.NumFloors(), b, floor) {
				continue
			}
			lamp, _ := m.Lamp(b, floor)
			button, _ := m.Button(b, floor)

			if err := e.SetFloorButtonLamp(b, floor, true); err != nil {
				t.Fatalf("SetFloorButtonLamp(%v, %d, true): %v", b, floor, err)
			}
			if !dev.Level(lamp) {
				t.Fatalf("lamp %v at %d not lit", b, floor)
			}
			dev.SetInput(button, true)
			if on, err := e.ReadFloorButton(b, floor); err != nil || !on {
				t.Fatalf("ReadFloorButton(%v, %d) = %v, %v; want true", b, floor, on, err)
			}

			if err := e.SetFloorButtonLamp(b, floor, false); err != nil {
				t.Fatalf("SetFloorButtonLamp(%v, %d, false): %v", b, floor, err)
			}
			if dev.Level(lamp) {
				t.Fatalf("lamp %v at %d still lit", b, floor)
			}
			dev.SetInput(button, false)
			if on, err := e.ReadFloorButton(b, floor); err != nil || on {
				t.Fatalf("ReadFloorButton(%v, %d) = %v, %v; want false", b, floor, on, err)
			}
		}
	}
}

func expectInvalidSignal(t *testing.T, dev *fake.Device, want channel.Signal, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recovered %v, want an error", r)
		}
		var ie *channel.InvalidSignalError
		if !errors.As(err, &ie) {
			t.Fatalf("recovered %v, want *channel.InvalidSignalError", err)
		}
		if ie.Signal != want {
			t.Fatalf("signal = %v, want %v", ie.Signal, want)
		}
		if !strings.Contains(err.Error(), want.Button.String()) {
			t.Fatalf("message %q does not name %v", err, want.Button)
		}
		if n := len(dev.Calls()); n != 0 {
			t.Fatalf("%d device calls for invalid signal", n)
		}
	}()
	f()
}

func TestInvalidButtonsPanic(t *testing.T) {
	invalid := []struct {
		b     ButtonType
		floor int
	}{
		{BT_HallDown, 0},
		{BT_HallUp, 3},
		{BT_Cab, 4},
		{BT_Cab, -1},
		{ButtonType(3), 1},
	}
	for _, tt := range invalid {
		e, dev := newTestElevator(t)
		expectInvalidSignal(t, dev, channel.Lamp(tt.b, tt.floor), func() {
			e.SetFloorButtonLamp(tt.b, tt.floor, true)
		})
		expectInvalidSignal(t, dev, channel.Button(tt.b, tt.floor), func() {
			e.ReadFloorButton(tt.b, tt.floor)
		})
	}
}

func TestStopButtonAndLamp(t *testing.T) {
	e, dev := newTestElevator(t)

	if err := e.SetStopButtonLamp(true); err != nil {
		t.Fatalf("SetStopButtonLamp: %v", err)
	}
	if !dev.Level(addr(channel.LIGHT_STOP)) {
		t.Fatal("stop lamp not lit")
	}

	if on, _ := e.ReadStopButton(); on {
		t.Fatal("stop button reads pressed")
	}
	dev.SetInput(addr(channel.STOP), true)
	if on, err := e.ReadStopButton(); err != nil || !on {
		t.Fatalf("ReadStopButton = %v, %v; want true", on, err)
	}
}

func TestDoorObstructionIndicator(t *testing.T) {
	e, dev := newTestElevator(t)

	if err := e.SetDoorOpenLamp(true); err != nil {
		t.Fatalf("SetDoorOpenLamp: %v", err)
	}
	if !dev.Level(addr(channel.LIGHT_DOOR_OPEN)) {
		t.Fatal("door lamp not lit")
	}

	dev.SetInput(addr(channel.OBSTRUCTION), true)
	if on, err := e.ReadObstruction(); err != nil || !on {
		t.Fatalf("ReadObstruction = %v, %v", on, err)
	}

	for floor, want := range [][2]bool{{false, false}, {false, true}, {true, false}, {true, true}} {
		if err := e.SetFloorIndicator(floor); err != nil {
			t.Fatalf("SetFloorIndicator(%d): %v", floor, err)
		}
		high := dev.Level(addr(channel.LIGHT_FLOOR_IND1))
		low := dev.Level(addr(channel.LIGHT_FLOOR_IND2))
		if high != want[0] || low != want[1] {
			t.Fatalf("floor %d: indicator = %v %v, want %v", floor, high, low, want)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatal("no panic for floor indicator 4")
		}
	}()
	e.SetFloorIndicator(4)
}

func TestClearAllLamps(t *testing.T) {
	e, dev := newTestElevator(t)
	for _, s := range e.Map().Signals() {
		if s.Kind == channel.ButtonLamp {
			e.SetFloorButtonLamp(s.Button, s.Floor, true)
		}
	}
	e.SetStopButtonLamp(true)
	e.SetDoorOpenLamp(true)

	if err := e.ClearAllLamps(); err != nil {
		t.Fatalf("ClearAllLamps: %v", err)
	}
	for _, s := range e.Map().Signals() {
		switch s.Kind {
		case channel.ButtonLamp, channel.StopLamp, channel.DoorLamp:
			a, _ := e.Map().Resolve(s)
			if dev.Level(a) {
				t.Errorf("%v still lit", s)
			}
		}
	}
}

func TestClose(t *testing.T) {
	e, dev := newTestElevator(t)
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if dev.CloseCount() != 1 {
		t.Fatalf("device closed %d times", dev.CloseCount())
	}
	if err := e.SetDirection(D_Stop); err != ErrClosed {
		t.Fatalf("SetDirection after Close = %v, want ErrClosed", err)
	}
	if _, _, err := e.ReadFloorSensor(); err != ErrClosed {
		t.Fatalf("ReadFloorSensor after Close = %v, want ErrClosed", err)
	}
	if _, err := e.ReadStopButton(); err != ErrClosed {
		t.Fatalf("ReadStopButton after Close = %v, want ErrClosed", err)
	}
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	e, dev := newTestElevator(t)
	dev.Latency = 100 * time.Microsecond

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				switch g {
				case 0:
					e.SetDirection(D_Up)
				case 1:
					e.ReadFloorSensor()
				case 2:
					e.SetFloorButtonLamp(BT_Cab, i%4, i%2 == 0)
				case 3:
					e.ReadStopButton()
				}
			}
		}(g)
	}
	wg.Wait()

	if n := dev.Overlaps(); n != 0 {
		t.Fatalf("%d overlapping device calls", n)
	}
}

func TestFakeDetectsOverlap(t *testing.T) {
	// Sanity check of the instrument used above: unserialized callers must
	// be caught.
	dev := fake.New()
	dev.Latency = 2 * time.Millisecond

	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				dev.DigitalRead(3, 22)
			}
		}()
	}
	wg.Wait()
	if dev.Overlaps() == 0 {
		t.Fatal("fake device did not notice overlapping calls")
	}
}
