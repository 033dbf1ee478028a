package parking

import "time"

// MaxPlateLen is the longest plate, in bytes, that fits the persisted car record.
const MaxPlateLen = 31

type Car struct {
	Plate      string    `json:"plate"`
	ArrivedAt  time.Time `json:"arrived_at"`
	DepartedAt time.Time `json:"departed_at,omitzero"`
}

func NewCar(plate string, arrivedAt time.Time) Car {
	return Car{
		Plate:     plate,
		ArrivedAt: arrivedAt,
	}
}

func (c Car) HasDeparted() bool {
	return !c.DepartedAt.IsZero()
}

func validPlate(plate string) bool {
	return plate != "" && len(plate) <= MaxPlateLen
}
