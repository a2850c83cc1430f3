package main

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"elevatorhw/channel"
	"elevatorhw/config"
	"elevatorhw/elevio"
	"elevatorhw/hwlog"
	"elevatorhw/iodevice/fake"
)

func TestMain(m *testing.M) {
	hwlog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const carStep = 3 * config.PollRate

var sensors = []int{channel.SENSOR_FLOOR0, channel.SENSOR_FLOOR1, channel.SENSOR_FLOOR2, channel.SENSOR_FLOOR3}

// simulateCar moves a car one floor per step in the direction the motor is
// driven, updating the floor sensors of dev. A step is longer than the poll
// rate so no floor is skipped by the waiting side.
func simulateCar(ctx context.Context, dev *fake.Device, start int) {
	floor := start
	dev.SetInput(channel.Unpack(sensors[floor]), true)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(carStep):
		}
		if dev.Data(channel.Unpack(channel.MOTOR)) == 0 {
			continue
		}
		next := floor + 1
		if dev.Level(channel.Unpack(channel.MOTORDIR)) {
			next = floor - 1
		}
		if next < 0 || next >= len(sensors) {
			continue
		}
		dev.SetInput(channel.Unpack(sensors[floor]), false)
		dev.SetInput(channel.Unpack(sensors[next]), true)
		floor = next
	}
}

func TestCheckRun(t *testing.T) {
	dev := fake.New()
	elev, err := elevio.New(dev)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go simulateCar(ctx, dev, 1)

	if err := checkRun(ctx, elev); err != nil {
		t.Fatalf("checkRun: %v", err)
	}
	if v := dev.Data(channel.Unpack(channel.MOTOR)); v != 0 {
		t.Fatalf("motor left at %d", v)
	}
	if f, _, _ := elev.ReadFloorSensor(); f != 2 {
		t.Fatalf("car ended at floor %d, want 2", f)
	}
}

func TestCheckStop(t *testing.T) {
	dev := fake.New()
	elev, err := elevio.New(dev)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dev.SetInput(channel.Unpack(channel.STOP), true)

	if err := checkStop(context.Background(), elev); err != nil {
		t.Fatalf("checkStop: %v", err)
	}
	if dev.Level(channel.Unpack(channel.LIGHT_STOP)) {
		t.Fatal("stop lamp left on")
	}
}

func TestCheckButtonsCancelled(t *testing.T) {
	dev := fake.New()
	elev, err := elevio.New(dev)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = check(ctx, elev, false, true, false, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
