package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"

	"elevatorhw/config"
	"elevatorhw/elevio"
	"elevatorhw/hwlog"
	"elevatorhw/iodevice/periph"
	"elevatorhw/poller"
)

const blinkTime = 200 * time.Millisecond

func main() {
	device := flag.String("device", config.DefaultDevice, "comedi device to open")
	pins := flag.String("pins", "", "JSON pin table; use GPIO pins through periph.io instead of comedi")
	speed := flag.Uint("speed", config.MotorSpeed, "motor output level while moving")
	run := flag.Bool("run", false, "drive bottom -> top -> one below top and stop")
	buttons := flag.Bool("buttons", false, "check every cab and hall button and lamp")
	stop := flag.Bool("stop", false, "check the stop button and lamp")
	watch := flag.Bool("watch", false, "print input events until interrupted")
	flag.Parse()

	cfg := config.Default()
	cfg.MotorSpeed = *speed
	opts := []elevio.Option{elevio.WithConfig(cfg)}

	if *pins != "" {
		f, err := os.Open(*pins)
		if err != nil {
			hwlog.Red.Printf("open pin table: %v", err)
			os.Exit(1)
		}
		pinCfg, err := periph.LoadConfig(f)
		f.Close()
		if err != nil {
			hwlog.Red.Print(err)
			os.Exit(1)
		}
		opts = append(opts, elevio.WithOpener(periph.Opener(pinCfg)))
	}

	elev, err := elevio.Open(*device, opts...)
	if err != nil {
		hwlog.Red.Print(err)
		os.Exit(1)
	}
	defer elev.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := elev.ClearAllLamps(); err != nil {
		hwlog.Red.Print(err)
		elev.Close()
		os.Exit(1)
	}
	hwlog.Green.Printf("Started on %s", *device)

	err = check(ctx, elev, *run, *buttons, *stop, *watch)
	if stopErr := elev.SetDirection(elevio.D_Stop); stopErr != nil {
		hwlog.Red.Printf("stop motor: %v", stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		hwlog.Red.Print(err)
		elev.Close()
		os.Exit(1)
	}
}

func check(ctx context.Context, elev *elevio.Elevator, run, buttons, stop, watch bool) error {
	if run {
		if err := checkRun(ctx, elev); err != nil {
			return errors.Wrap(err, "run")
		}
	}
	if buttons {
		for _, b := range []elevio.ButtonType{elevio.BT_Cab, elevio.BT_HallUp, elevio.BT_HallDown} {
			if err := checkButtons(ctx, elev, b); err != nil {
				return errors.Wrapf(err, "%v buttons", b)
			}
		}
	}
	if stop {
		if err := checkStop(ctx, elev); err != nil {
			return errors.Wrap(err, "stop button")
		}
	}
	if watch {
		watchInputs(ctx, elev)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitUntil polls cond until it reports true.
func waitUntil(ctx context.Context, cond func() (bool, error)) error {
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := sleep(ctx, config.PollRate); err != nil {
			return err
		}
	}
}

func waitFloor(ctx context.Context, elev *elevio.Elevator, floor int) error {
	return waitUntil(ctx, func() (bool, error) {
		f, _, err := elev.ReadFloorSensor()
		return f == floor, err
	})
}

func checkRun(ctx context.Context, elev *elevio.Elevator) error {
	top := elev.NumFloors() - 1
	hwlog.Cyan.Printf("Running to floor 0, then %d, then stopping at %d", top, top-1)

	legs := []struct {
		dir   elevio.Dirn
		floor int
	}{
		{elevio.D_Down, 0},
		{elevio.D_Up, top},
		{elevio.D_Down, top - 1},
	}
	for _, leg := range legs {
		if err := elev.SetDirection(leg.dir); err != nil {
			return err
		}
		if err := waitFloor(ctx, elev, leg.floor); err != nil {
			return err
		}
		if err := elev.SetFloorIndicator(leg.floor); err != nil {
			return err
		}
		hwlog.Printf("Reached floor %d", leg.floor)
	}
	return elev.SetDirection(elevio.D_Stop)
}

// blinkAndWait blinks a lamp, leaves it on until press reports true, then
// turns it off.
func blinkAndWait(ctx context.Context, set func(bool) error, press func() (bool, error)) error {
	for _, on := range []bool{true, false, true} {
		if err := set(on); err != nil {
			return err
		}
		if err := sleep(ctx, blinkTime); err != nil {
			return err
		}
	}
	if err := waitUntil(ctx, press); err != nil {
		return err
	}
	return set(false)
}

func checkButtons(ctx context.Context, elev *elevio.Elevator, b elevio.ButtonType) error {
	n := elev.NumFloors()
	for _, floor := range rand.Perm(n) {
		if (b == elevio.BT_HallUp && floor == n-1) || (b == elevio.BT_HallDown && floor == 0) {
			continue
		}
		hwlog.Cyan.Printf("Press %v at floor %d", b, floor)
		err := blinkAndWait(ctx,
			func(on bool) error { return elev.SetFloorButtonLamp(b, floor, on) },
			func() (bool, error) { return elev.ReadFloorButton(b, floor) })
		if err != nil {
			return err
		}
	}
	return nil
}

func checkStop(ctx context.Context, elev *elevio.Elevator) error {
	hwlog.Cyan.Print("Press the stop button")
	return blinkAndWait(ctx, elev.SetStopButtonLamp, elev.ReadStopButton)
}

func watchInputs(ctx context.Context, elev *elevio.Elevator) {
	floors := make(chan int)
	buttons := make(chan elevio.ButtonEvent)
	stops := make(chan bool)
	obstructions := make(chan bool)

	go poller.PollFloorSensor(ctx, elev, config.PollRate, floors)
	go poller.PollButtons(ctx, elev, config.PollRate, buttons)
	go poller.PollStopButton(ctx, elev, config.PollRate, stops)
	go poller.PollObstruction(ctx, elev, config.PollRate, obstructions)

	hwlog.Cyan.Print("Watching inputs, Ctrl-C to quit")
	for {
		select {
		case floor := <-floors:
			hwlog.Println("Floor sensor:", floor)
			if err := elev.SetFloorIndicator(floor); err != nil {
				hwlog.Red.Print(err)
			}
		case ev := <-buttons:
			hwlog.Println("Button pressed:", ev.Button, "floor", ev.Floor)
			if err := elev.SetFloorButtonLamp(ev.Button, ev.Floor, true); err != nil {
				hwlog.Red.Print(err)
			}
		case pressed := <-stops:
			hwlog.Println("Stop button:", pressed)
			if err := elev.SetStopButtonLamp(pressed); err != nil {
				hwlog.Red.Print(err)
			}
		case obstructed := <-obstructions:
			hwlog.Println("Obstruction:", obstructed)
		case <-ctx.Done():
			return
		}
	}
}
