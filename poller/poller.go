// Package poller turns the single-shot reads of elevio into change events
// on channels. It is the controller-side layer: elevio itself never waits.
package poller

import (
	"context"
	"time"

	"elevatorhw/channel"
	"elevatorhw/elevio"
	"elevatorhw/hwlog"
)

// Inputs is the read side of an *elevio.Elevator.
type Inputs interface {
	NumFloors() int
	ReadFloorSensor() (int, bool, error)
	ReadFloorButton(b elevio.ButtonType, floor int) (bool, error)
	ReadStopButton() (bool, error)
	ReadObstruction() (bool, error)
}

func send[T any](ctx context.Context, receiver chan<- T, v T) bool {
	select {
	case receiver <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// PollFloorSensor sends the floor each time the car arrives at one. Leaving
// a floor is not reported.
func PollFloorSensor(ctx context.Context, in Inputs, interval time.Duration, receiver chan<- int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		floor, _, err := in.ReadFloorSensor()
		if err != nil {
			hwlog.Yellow.Printf("poller: %v", err)
			continue
		}
		if floor != prev && floor != -1 {
			if !send(ctx, receiver, floor) {
				return
			}
		}
		prev = floor
	}
}

// PollButtons sends an event when a button goes from released to pressed.
func PollButtons(ctx context.Context, in Inputs, interval time.Duration, receiver chan<- elevio.ButtonEvent) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n := in.NumFloors()
	prev := make([][elevio.N_Buttons]bool, n)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for floor := 0; floor < n; floor++ {
			for b := elevio.BT_HallUp; b <= elevio.BT_Cab; b++ {
				if !channel.ValidButton(n, b, floor) {
					continue
				}
				pressed, err := in.ReadFloorButton(b, floor)
				if err != nil {
					hwlog.Yellow.Printf("poller: %v", err)
					continue
				}
				if pressed && !prev[floor][b] {
					if !send(ctx, receiver, elevio.ButtonEvent{Floor: floor, Button: b}) {
						return
					}
				}
				prev[floor][b] = pressed
			}
		}
	}
}

func pollSwitch(ctx context.Context, read func() (bool, error), interval time.Duration, receiver chan<- bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		v, err := read()
		if err != nil {
			hwlog.Yellow.Printf("poller: %v", err)
			continue
		}
		if v != prev {
			if !send(ctx, receiver, v) {
				return
			}
		}
		prev = v
	}
}

// PollStopButton sends the new state each time the stop button changes.
func PollStopButton(ctx context.Context, in Inputs, interval time.Duration, receiver chan<- bool) {
	pollSwitch(ctx, in.ReadStopButton, interval, receiver)
}

func PollObstruction(ctx context.Context, in Inputs, interval time.Duration, receiver chan<- bool) {
	pollSwitch(ctx, in.ReadObstruction, interval, receiver)
}
