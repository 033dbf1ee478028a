package parking

// ParkingStack is a fixed-capacity LIFO of cars. Only the car at the top can
// leave without moving others.
type ParkingStack struct {
	cars []Car
	top  int
}

func NewParkingStack(capacity int) *ParkingStack {
	if capacity < 1 {
		capacity = 1
	}

	return &ParkingStack{
		cars: make([]Car, capacity),
		top:  -1,
	}
}

func (s *ParkingStack) IsEmpty() bool {
	return s.top == -1
}

func (s *ParkingStack) IsFull() bool {
	return s.top == len(s.cars)-1
}

func (s *ParkingStack) Len() int {
	return s.top + 1
}

func (s *ParkingStack) Cap() int {
	return len(s.cars)
}

func (s *ParkingStack) Push(car Car) error {
	if s.IsFull() {
		return ErrFull
	}
	s.top++
	s.cars[s.top] = car
	return nil
}

func (s *ParkingStack) Pop() (Car, bool) {
	if s.IsEmpty() {
		return Car{}, false
	}
	car := s.cars[s.top]
	s.cars[s.top] = Car{}
	s.top--
	return car, true
}

func (s *ParkingStack) Peek() (Car, bool) {
	if s.IsEmpty() {
		return Car{}, false
	}
	return s.cars[s.top], true
}

// At returns the car at index i, counting from the bottom (0).
func (s *ParkingStack) At(i int) (Car, bool) {
	if i < 0 || i > s.top {
		return Car{}, false
	}
	return s.cars[i], true
}

// Find scans from the top down and returns the index of the first car with
// the given plate.
func (s *ParkingStack) Find(plate string) (int, bool) {
	for i := s.top; i >= 0; i-- {
		if s.cars[i].Plate == plate {
			return i, true
		}
	}
	return -1, false
}

// Cars returns a copy of the parked cars from bottom to top.
func (s *ParkingStack) Cars() []Car {
	cars := make([]Car, s.Len())
	copy(cars, s.cars[:s.top+1])
	return cars
}

func (s *ParkingStack) Reset() {
	for i := 0; i <= s.top; i++ {
		s.cars[i] = Car{}
	}
	s.top = -1
}
