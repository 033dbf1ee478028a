// Package events publishes facility events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lifo-parking/internal/parking"
)

type Type string

const (
	CarParked   Type = "car.parked"
	CarWaiting  Type = "car.waiting"
	CarDeparted Type = "car.departed"
	CarPromoted Type = "car.promoted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Plate      string    `json:"plate"`
	OccurredAt time.Time `json:"occurred_at"`
	Position   int       `json:"position,omitempty"`
	Fee        float64   `json:"fee,omitempty"`
	Hours      int64     `json:"billed_hours,omitempty"`
}

// RoutingKey is the topic routing key, e.g. "parking.car.departed".
func (e Event) RoutingKey() string {
	return "parking." + string(e.Type)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

func newEvent(t Type, plate string, at time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		Plate:      plate,
		OccurredAt: at,
	}
}

func FromEntry(entry parking.Entry) Event {
	t := CarParked
	if entry.Placement == parking.Waiting {
		t = CarWaiting
	}
	e := newEvent(t, entry.Car.Plate, entry.Car.ArrivedAt)
	e.Position = entry.Position
	return e
}

// FromReceipt returns the departure event and, when a waiting car moved in,
// its promotion event.
func FromReceipt(receipt parking.Receipt) []Event {
	departed := newEvent(CarDeparted, receipt.Plate, receipt.DepartedAt)
	departed.Fee = receipt.Fee
	departed.Hours = receipt.BilledHours

	out := []Event{departed}
	if receipt.Promoted != nil {
		out = append(out, newEvent(CarPromoted, receipt.Promoted.Plate, receipt.Promoted.ArrivedAt))
	}
	return out
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
