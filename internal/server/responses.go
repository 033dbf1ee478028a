package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"lifo-parking/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type PlateRequest struct {
	Plate string `json:"plate"`
}

type EntryResponse struct {
	Plate     string    `json:"plate"`
	Placement string    `json:"placement"`
	Position  int       `json:"position"`
	ArrivedAt time.Time `json:"arrived_at"`
}

type ExitResponse struct {
	Plate           string    `json:"plate"`
	ArrivedAt       time.Time `json:"arrived_at"`
	DepartedAt      time.Time `json:"departed_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	BilledHours     int64     `json:"billed_hours"`
	HourlyRate      float64   `json:"hourly_rate"`
	Fee             float64   `json:"fee"`
	Relocated       int       `json:"relocated"`
	Promoted        string    `json:"promoted,omitempty"`
}

type StatsResponse struct {
	TotalServed   int64     `json:"total_served"`
	TotalRevenue  float64   `json:"total_revenue"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	HourlyAverage float64   `json:"hourly_average"`
}

type LoadResponse struct {
	Loaded bool `json:"loaded"`
}

func newEntryResponse(entry parking.Entry) EntryResponse {
	return EntryResponse{
		Plate:     entry.Car.Plate,
		Placement: entry.Placement.String(),
		Position:  entry.Position,
		ArrivedAt: entry.Car.ArrivedAt,
	}
}

func newExitResponse(receipt parking.Receipt) ExitResponse {
	resp := ExitResponse{
		Plate:           receipt.Plate,
		ArrivedAt:       receipt.ArrivedAt,
		DepartedAt:      receipt.DepartedAt,
		DurationSeconds: int64(receipt.Duration / time.Second),
		BilledHours:     receipt.BilledHours,
		HourlyRate:      receipt.HourlyRate,
		Fee:             receipt.Fee,
		Relocated:       receipt.Relocated,
	}
	if receipt.Promoted != nil {
		resp.Promoted = receipt.Promoted.Plate
	}
	return resp
}

func newStatsResponse(s parking.StatsSnapshot) StatsResponse {
	return StatsResponse{
		TotalServed:   s.TotalServed,
		TotalRevenue:  s.TotalRevenue,
		StartedAt:     s.StartedAt,
		UptimeSeconds: int64(s.Uptime / time.Second),
		HourlyAverage: s.HourlyAverage,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
