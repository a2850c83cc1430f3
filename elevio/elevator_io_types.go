package elevio

import "elevatorhw/channel"

const N_Buttons = channel.N_Buttons

type Dirn int

const (
	D_Down Dirn = -1
	D_Stop Dirn = 0
	D_Up   Dirn = 1
)

type ButtonType = channel.ButtonType

const (
	BT_HallUp   = channel.BT_HallUp
	BT_HallDown = channel.BT_HallDown
	BT_Cab      = channel.BT_Cab
)

type ButtonEvent struct {
	Floor  int
	Button ButtonType
}

func DirnToString(d Dirn) string {
	switch d {
	case D_Up:
		return "D_Up"
	case D_Down:
		return "D_Down"
	case D_Stop:
		return "D_Stop"
	default:
		return "D_UNDEFINED"
	}
}

func (d Dirn) String() string {
	return DirnToString(d)
}
