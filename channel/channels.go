package channel

// Packed channel numbers of the lab I/O card: subdevice<<8 + channel.
// Floors are numbered from 0.

//in port 4
const (
	OBSTRUCTION     = (0x300 + 23)
	STOP            = (0x300 + 22)
	BUTTON_COMMAND0 = (0x300 + 21)
	BUTTON_COMMAND1 = (0x300 + 20)
	BUTTON_COMMAND2 = (0x300 + 19)
	BUTTON_COMMAND3 = (0x300 + 18)
	BUTTON_UP0      = (0x300 + 17)
	BUTTON_UP1      = (0x300 + 16)
)

//in port 1
const (
	BUTTON_DOWN1  = (0x200 + 0)
	BUTTON_UP2    = (0x200 + 1)
	BUTTON_DOWN2  = (0x200 + 2)
	BUTTON_DOWN3  = (0x200 + 3)
	SENSOR_FLOOR0 = (0x200 + 4)
	SENSOR_FLOOR1 = (0x200 + 5)
	SENSOR_FLOOR2 = (0x200 + 6)
	SENSOR_FLOOR3 = (0x200 + 7)
)

//out port 3
const (
	MOTORDIR       = (0x300 + 15)
	LIGHT_STOP     = (0x300 + 14)
	LIGHT_COMMAND0 = (0x300 + 13)
	LIGHT_COMMAND1 = (0x300 + 12)
	LIGHT_COMMAND2 = (0x300 + 11)
	LIGHT_COMMAND3 = (0x300 + 10)
	LIGHT_UP0      = (0x300 + 9)
	LIGHT_UP1      = (0x300 + 8)
)

//out port 2
const (
	LIGHT_DOWN1      = (0x300 + 7)
	LIGHT_UP2        = (0x300 + 6)
	LIGHT_DOWN2      = (0x300 + 5)
	LIGHT_DOWN3      = (0x300 + 4)
	LIGHT_DOOR_OPEN  = (0x300 + 3)
	LIGHT_FLOOR_IND2 = (0x300 + 1)
	LIGHT_FLOOR_IND1 = (0x300 + 0)
)

//out port 0
const MOTOR = (0x100 + 0)

const referenceFloors = 4

func referenceBindings() []Binding {
	return []Binding{
		{Signal{Kind: Motor}, Unpack(MOTOR)},
		{Signal{Kind: MotorDir}, Unpack(MOTORDIR)},
		{Signal{Kind: StopButton}, Unpack(STOP)},
		{Signal{Kind: StopLamp}, Unpack(LIGHT_STOP)},
		{Signal{Kind: Obstruction}, Unpack(OBSTRUCTION)},
		{Signal{Kind: DoorLamp}, Unpack(LIGHT_DOOR_OPEN)},
		{Signal{Kind: FloorIndicatorLow}, Unpack(LIGHT_FLOOR_IND2)},
		{Signal{Kind: FloorIndicatorHigh}, Unpack(LIGHT_FLOOR_IND1)},

		{Signal{Kind: FloorSensor, Floor: 0}, Unpack(SENSOR_FLOOR0)},
		{Signal{Kind: FloorSensor, Floor: 1}, Unpack(SENSOR_FLOOR1)},
		{Signal{Kind: FloorSensor, Floor: 2}, Unpack(SENSOR_FLOOR2)},
		{Signal{Kind: FloorSensor, Floor: 3}, Unpack(SENSOR_FLOOR3)},

		{Signal{Kind: ButtonInput, Button: BT_HallUp, Floor: 0}, Unpack(BUTTON_UP0)},
		{Signal{Kind: ButtonInput, Button: BT_Cab, Floor: 0}, Unpack(BUTTON_COMMAND0)},
		{Signal{Kind: ButtonInput, Button: BT_HallUp, Floor: 1}, Unpack(BUTTON_UP1)},
		{Signal{Kind: ButtonInput, Button: BT_HallDown, Floor: 1}, Unpack(BUTTON_DOWN1)},
		{Signal{Kind: ButtonInput, Button: BT_Cab, Floor: 1}, Unpack(BUTTON_COMMAND1)},
		{Signal{Kind: ButtonInput, Button: BT_HallUp, Floor: 2}, Unpack(BUTTON_UP2)},
		{Signal{Kind: ButtonInput, Button: BT_HallDown, Floor: 2}, Unpack(BUTTON_DOWN2)},
		{Signal{Kind: ButtonInput, Button: BT_Cab, Floor: 2}, Unpack(BUTTON_COMMAND2)},
		{Signal{Kind: ButtonInput, Button: BT_HallDown, Floor: 3}, Unpack(BUTTON_DOWN3)},
		{Signal{Kind: ButtonInput, Button: BT_Cab, Floor: 3}, Unpack(BUTTON_COMMAND3)},

		{Signal{Kind: ButtonLamp, Button: BT_HallUp, Floor: 0}, Unpack(LIGHT_UP0)},
		{Signal{Kind: ButtonLamp, Button: BT_Cab, Floor: 0}, Unpack(LIGHT_COMMAND0)},
		{Signal{Kind: ButtonLamp, Button: BT_HallUp, Floor: 1}, Unpack(LIGHT_UP1)},
		{Signal{Kind: ButtonLamp, Button: BT_HallDown, Floor: 1}, Unpack(LIGHT_DOWN1)},
		{Signal{Kind: ButtonLamp, Button: BT_Cab, Floor: 1}, Unpack(LIGHT_COMMAND1)},
		{Signal{Kind: ButtonLamp, Button: BT_HallUp, Floor: 2}, Unpack(LIGHT_UP2)},
		{Signal{Kind: ButtonLamp, Button: BT_HallDown, Floor: 2}, Unpack(LIGHT_DOWN2)},
		{Signal{Kind: ButtonLamp, Button: BT_Cab, Floor: 2}, Unpack(LIGHT_COMMAND2)},
		{Signal{Kind: ButtonLamp, Button: BT_HallDown, Floor: 3}, Unpack(LIGHT_DOWN3)},
		{Signal{Kind: ButtonLamp, Button: BT_Cab, Floor: 3}, Unpack(LIGHT_COMMAND3)},
	}
}

// ReferenceBindings returns a copy of the 4-floor lab card table.
func ReferenceBindings() []Binding {
	return referenceBindings()
}

// ReferenceMap is the channel map of the 4-floor lab elevator.
func ReferenceMap() *Map {
	m, err := NewMap(referenceFloors, referenceBindings())
	if err != nil {
		panic(err)
	}
	return m
}
