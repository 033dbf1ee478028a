package parking

import (
	"fmt"
	"time"
)

const DefaultCapacity = 10

type Placement int

const (
	Parked Placement = iota + 1
	Waiting
)

func (p Placement) String() string {
	switch p {
	case Parked:
		return "parked"
	case Waiting:
		return "waiting"
	default:
		return "unknown"
	}
}

func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Entry describes where an entering car ended up. Position is 1-based: the
// slot number when parked, the queue position when waiting.
type Entry struct {
	Car       Car       `json:"car"`
	Placement Placement `json:"placement"`
	Position  int       `json:"position"`
}

type Receipt struct {
	Plate       string        `json:"plate"`
	ArrivedAt   time.Time     `json:"arrived_at"`
	DepartedAt  time.Time     `json:"departed_at"`
	Duration    time.Duration `json:"duration"`
	BilledHours int64         `json:"billed_hours"`
	HourlyRate  float64       `json:"hourly_rate"`
	Fee         float64       `json:"fee"`
	Relocated   int           `json:"relocated"`
	Promoted    *Car          `json:"promoted,omitempty"`
}

type Status struct {
	Capacity      int      `json:"capacity"`
	Occupied      int      `json:"occupied"`
	Free          int      `json:"free"`
	WaitingCount  int      `json:"waiting_count"`
	ParkedPlates  []string `json:"parked_plates"`
	WaitingPlates []string `json:"waiting_plates"`
}

// State is everything needed to rebuild a facility: parked cars bottom to
// top, waiting cars front to rear.
type State struct {
	Stats   Stats
	Parked  []Car
	Waiting []Car
}

type Option func(*Facility)

func WithClock(now func() time.Time) Option {
	return func(f *Facility) {
		f.clock = now
	}
}

// WithHourlyRate sets the fee per started hour. Negative or non-finite rates
// are ignored and the default stays in place.
func WithHourlyRate(rate float64) Option {
	return func(f *Facility) {
		if validAmount(rate) {
			f.hourlyRate = rate
		}
	}
}

// Facility owns the parking stack, the waiting queue and the running stats.
// It is not safe for concurrent use.
type Facility struct {
	capacity   int
	hourlyRate float64
	clock      func() time.Time

	stack *ParkingStack
	queue *WaitingQueue
	stats Stats
}

func NewFacility(capacity int, opts ...Option) *Facility {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	f := &Facility{
		capacity:   capacity,
		hourlyRate: DefaultHourlyRate,
		clock:      time.Now,
		stack:      NewParkingStack(capacity),
		queue:      NewWaitingQueue(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.stats = NewStats(f.now())

	return f
}

// now is truncated to whole seconds so timestamps survive persistence.
func (f *Facility) now() time.Time {
	return time.Unix(f.clock().Unix(), 0)
}

func (f *Facility) Capacity() int {
	return f.capacity
}

func (f *Facility) HourlyRate() float64 {
	return f.hourlyRate
}

func (f *Facility) Exists(plate string) bool {
	if _, ok := f.stack.Find(plate); ok {
		return true
	}
	return f.queue.Contains(plate)
}

func (f *Facility) Enter(plate string) (Entry, error) {
	if !validPlate(plate) {
		return Entry{}, ErrInvalidPlate
	}
	if f.Exists(plate) {
		return Entry{}, ErrExists
	}

	car := NewCar(plate, f.now())

	if err := f.stack.Push(car); err == nil {
		return Entry{Car: car, Placement: Parked, Position: f.stack.Len()}, nil
	}

	f.queue.Enqueue(car)
	return Entry{Car: car, Placement: Waiting, Position: f.queue.Len()}, nil
}

func (f *Facility) Exit(plate string) (Receipt, error) {
	if f.stack.IsEmpty() {
		return Receipt{}, ErrEmpty
	}

	position, ok := f.stack.Find(plate)
	if !ok {
		return Receipt{}, ErrNotFound
	}

	aux := NewParkingStack(f.capacity)
	carsAbove := f.stack.Len() - 1 - position

	for i := 0; i < carsAbove; i++ {
		car, ok := f.stack.Pop()
		if !ok {
			f.restore(aux)
			return Receipt{}, fmt.Errorf("%w: stack drained with %d cars still above %s", ErrRelocation, carsAbove-i, plate)
		}
		if err := aux.Push(car); err != nil {
			_ = f.stack.Push(car)
			f.restore(aux)
			return Receipt{}, fmt.Errorf("%w: %v", ErrRelocation, err)
		}
	}

	leaving, ok := f.stack.Pop()
	if !ok || leaving.Plate != plate {
		if ok {
			_ = f.stack.Push(leaving)
		}
		f.restore(aux)
		return Receipt{}, fmt.Errorf("%w: expected %s on top after moving %d cars", ErrRelocation, plate, carsAbove)
	}

	leaving.DepartedAt = f.now()
	hours := BilledHours(leaving.ArrivedAt, leaving.DepartedAt)
	fee := float64(hours) * f.hourlyRate
	f.stats.record(fee)

	f.restore(aux)

	receipt := Receipt{
		Plate:       leaving.Plate,
		ArrivedAt:   leaving.ArrivedAt,
		DepartedAt:  leaving.DepartedAt,
		Duration:    leaving.DepartedAt.Sub(leaving.ArrivedAt),
		BilledHours: hours,
		HourlyRate:  f.hourlyRate,
		Fee:         fee,
		Relocated:   carsAbove,
	}

	if promoted, ok := f.promote(); ok {
		receipt.Promoted = &promoted
	}

	return receipt, nil
}

// restore drains the auxiliary stack back onto the facility. Every car in aux
// was popped from the facility, so the pushes cannot overflow.
func (f *Facility) restore(aux *ParkingStack) {
	for {
		car, ok := aux.Pop()
		if !ok {
			return
		}
		_ = f.stack.Push(car)
	}
}

func (f *Facility) promote() (Car, bool) {
	if f.queue.IsEmpty() || f.stack.IsFull() {
		return Car{}, false
	}

	car, _ := f.queue.Dequeue()
	car.ArrivedAt = f.now()
	_ = f.stack.Push(car)

	return car, true
}

func (f *Facility) Status() Status {
	parked := f.stack.Cars()
	waiting := f.queue.Cars()

	status := Status{
		Capacity:      f.capacity,
		Occupied:      len(parked),
		Free:          f.capacity - len(parked),
		WaitingCount:  len(waiting),
		ParkedPlates:  make([]string, 0, len(parked)),
		WaitingPlates: make([]string, 0, len(waiting)),
	}
	for _, car := range parked {
		status.ParkedPlates = append(status.ParkedPlates, car.Plate)
	}
	for _, car := range waiting {
		status.WaitingPlates = append(status.WaitingPlates, car.Plate)
	}

	return status
}

func (f *Facility) Stats() StatsSnapshot {
	return f.stats.Snapshot(f.now())
}

func (f *Facility) ParkedCars() []Car {
	return f.stack.Cars()
}

func (f *Facility) WaitingCars() []Car {
	return f.queue.Cars()
}

func (f *Facility) Snapshot() State {
	return State{
		Stats:   f.stats,
		Parked:  f.stack.Cars(),
		Waiting: f.queue.Cars(),
	}
}

// Restore replaces the whole in-memory state. The stored order is replayed
// through push and enqueue; on any error the current state is left untouched.
func (f *Facility) Restore(state State) error {
	if len(state.Parked) > f.capacity {
		return fmt.Errorf("%w: %d parked cars exceed capacity %d", ErrInvalidState, len(state.Parked), f.capacity)
	}
	if state.Stats.TotalServed < 0 || !validAmount(state.Stats.TotalRevenue) {
		return fmt.Errorf("%w: counters out of range (served %d, revenue %v)", ErrInvalidState, state.Stats.TotalServed, state.Stats.TotalRevenue)
	}

	seen := make(map[string]struct{}, len(state.Parked)+len(state.Waiting))
	stack := NewParkingStack(f.capacity)
	queue := NewWaitingQueue()

	for _, car := range state.Parked {
		if err := checkRestored(car, seen); err != nil {
			return err
		}
		if err := stack.Push(car); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}
	for _, car := range state.Waiting {
		if err := checkRestored(car, seen); err != nil {
			return err
		}
		queue.Enqueue(car)
	}

	f.stack.Reset()
	f.queue.Clear()
	f.stack = stack
	f.queue = queue
	f.stats = state.Stats

	return nil
}

func checkRestored(car Car, seen map[string]struct{}) error {
	if !validPlate(car.Plate) {
		return fmt.Errorf("%w: plate %q", ErrInvalidState, car.Plate)
	}
	if _, dup := seen[car.Plate]; dup {
		return fmt.Errorf("%w: duplicate plate %s", ErrInvalidState, car.Plate)
	}
	seen[car.Plate] = struct{}{}
	return nil
}

// Clear drops every parked and waiting car. Stats are kept.
func (f *Facility) Clear() {
	f.stack.Reset()
	f.queue.Clear()
}
