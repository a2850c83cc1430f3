package config

import "time"

var DefaultDevice string = "/dev/comedi0"

const N_Floors = 4

// Analog level written to the motor output when moving. Calibrated for the
// lab motor controller.
const MotorSpeed = 2800

// Range and analog reference used for every data read/write on the card.
const (
	DataRange = 0
	DataAref  = 0
)

const PollRate = 25 * time.Millisecond

type Config struct {
	NumFloors  int
	MotorSpeed uint
	DataRange  uint
	DataAref   uint
}

func Default() Config {
	return Config{
		NumFloors:  N_Floors,
		MotorSpeed: MotorSpeed,
		DataRange:  DataRange,
		DataAref:   DataAref,
	}
}
