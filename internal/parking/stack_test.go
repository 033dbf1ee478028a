package parking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParkingStack(t *testing.T) {
	s := NewParkingStack(3)

	assert.True(t, s.IsEmpty())
	assert.False(t, s.IsFull())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 3, s.Cap())
	assert.Empty(t, s.Cars())
}

func TestParkingStackPushPop(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewParkingStack(2)

	require.NoError(t, s.Push(NewCar("AAA0001", now)))
	require.NoError(t, s.Push(NewCar("AAA0002", now)))
	assert.True(t, s.IsFull())

	err := s.Push(NewCar("AAA0003", now))
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, s.Len())

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, "AAA0002", top.Plate)

	car, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "AAA0002", car.Plate)

	car, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, "AAA0001", car.Plate)

	_, ok = s.Pop()
	assert.False(t, ok, "pop on an empty stack must report absence")
	assert.True(t, s.IsEmpty())
}

func TestParkingStackFindScansTopDown(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewParkingStack(4)
	require.NoError(t, s.Push(NewCar("AAA0001", now)))
	require.NoError(t, s.Push(NewCar("DUP0001", now)))
	require.NoError(t, s.Push(NewCar("AAA0002", now)))
	require.NoError(t, s.Push(NewCar("DUP0001", now.Add(time.Minute))))

	pos, ok := s.Find("DUP0001")
	require.True(t, ok)
	assert.Equal(t, 3, pos, "topmost duplicate wins")

	pos, ok = s.Find("AAA0001")
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	_, ok = s.Find("NOPE")
	assert.False(t, ok)
}

func TestParkingStackAtAndCars(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewParkingStack(3)
	require.NoError(t, s.Push(NewCar("AAA0001", now)))
	require.NoError(t, s.Push(NewCar("AAA0002", now)))

	car, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, "AAA0002", car.Plate)

	_, ok = s.At(2)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)

	cars := s.Cars()
	require.Len(t, cars, 2)
	cars[0].Plate = "CHANGED"

	car, _ = s.At(0)
	assert.Equal(t, "AAA0001", car.Plate, "Cars must return a copy")
}

func TestParkingStackReset(t *testing.T) {
	s := NewParkingStack(2)
	require.NoError(t, s.Push(NewCar("AAA0001", time.Unix(1, 0))))

	s.Reset()

	assert.True(t, s.IsEmpty())
	assert.Equal(t, 2, s.Cap())
}
