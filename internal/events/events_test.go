package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifo-parking/internal/parking"
)

func TestFromEntry(t *testing.T) {
	now := time.Unix(1700000000, 0)

	e := FromEntry(parking.Entry{Car: parking.NewCar("京A12345", now), Placement: parking.Parked, Position: 3})
	assert.Equal(t, CarParked, e.Type)
	assert.Equal(t, "京A12345", e.Plate)
	assert.Equal(t, 3, e.Position)
	assert.Equal(t, "parking.car.parked", e.RoutingKey())
	assert.NotEmpty(t, e.ID)

	e = FromEntry(parking.Entry{Car: parking.NewCar("京A12346", now), Placement: parking.Waiting, Position: 1})
	assert.Equal(t, CarWaiting, e.Type)
}

func TestFromReceipt(t *testing.T) {
	now := time.Unix(1700000000, 0)
	promoted := parking.NewCar("京B00002", now)

	out := FromReceipt(parking.Receipt{
		Plate:       "京B00001",
		DepartedAt:  now,
		BilledHours: 2,
		Fee:         20,
		Promoted:    &promoted,
	})
	require.Len(t, out, 2)
	assert.Equal(t, CarDeparted, out[0].Type)
	assert.InDelta(t, 20.0, out[0].Fee, 0.0001)
	assert.Equal(t, int64(2), out[0].Hours)
	assert.Equal(t, CarPromoted, out[1].Type)
	assert.Equal(t, "京B00002", out[1].Plate)
	assert.NotEqual(t, out[0].ID, out[1].ID)

	out = FromReceipt(parking.Receipt{Plate: "京B00001", DepartedAt: now})
	assert.Len(t, out, 1)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: CarParked}))
	assert.NoError(t, p.Close())
}
