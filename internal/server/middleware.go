package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lifo-parking/internal/parking"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const (
	requestIDHeader = "X-Request-ID"
	tracerName      = "lifo-parking-http-server"
)

// RequestIDMiddleware keeps a caller supplied X-Request-ID and mints one
// otherwise.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens one span per request. The span is renamed to the
// matched chi route once routing is done, so /api/facility/exit and friends
// group by route rather than by raw URL. Handlers add the parking attributes.
func TracingMiddleware(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID, _ := r.Context().Value(RequestIDKey).(string)
			ctx, span := tracer.Start(r.Context(), "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.path", r.URL.Path),
					attribute.String("http.user_agent", r.UserAgent()),
					attribute.String("http.remote_addr", r.RemoteAddr),
					attribute.String("parking.request_id", reqID),
				))
			defer span.End()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if rctx := chi.RouteContext(ctx); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					span.SetName(r.Method + " " + pattern)
					span.SetAttributes(attribute.String("http.route", pattern))
				}
			}
			span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))
			if wrapped.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			}
		})
	}
}

// annotateEntry and annotateExit put the outcome of a facility operation on
// the request span.
func annotateEntry(ctx context.Context, plate string, entry parking.Entry) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("vehicle.plate", plate),
		attribute.String("parking.placement", entry.Placement.String()),
		attribute.Int("parking.position", entry.Position),
	)
}

func annotateExit(ctx context.Context, receipt parking.Receipt) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("vehicle.plate", receipt.Plate),
		attribute.Int64("parking.billed_hours", receipt.BilledHours),
		attribute.Float64("parking.fee", receipt.Fee),
		attribute.Int("parking.relocated", receipt.Relocated),
	)
	if receipt.Promoted != nil {
		span.SetAttributes(attribute.String("parking.promoted", receipt.Promoted.Plate))
	}
}

// annotateRejection records why a plate was turned away without marking the
// span as failed; 4xx outcomes are normal traffic for a parking facility.
func annotateRejection(ctx context.Context, plate string, err error) {
	span := trace.SpanFromContext(ctx)
	if plate != "" {
		span.SetAttributes(attribute.String("vehicle.plate", plate))
	}
	span.AddEvent("plate_rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
}

func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			event := logger.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			reqID, _ := r.Context().Value(RequestIDKey).(string)
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", reqID).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func RecoveryMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic recovered")

					span := trace.SpanFromContext(ctx)
					if err, ok := rec.(error); ok {
						span.RecordError(err)
					}
					span.SetStatus(codes.Error, "panic recovered")

					WriteError(ctx, w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows browser dashboards on other origins to drive the
// facility API and read the request ID back.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
