package garage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lifo-parking/internal/parking"
)

const timeLayout = "2006-01-02 15:04:05"

// Shell is the line-oriented operator console.
type Shell struct {
	service     *Service
	scanner     *bufio.Scanner
	out         io.Writer
	tracer      trace.Tracer
	plateStrict bool
}

func NewShell(service *Service, telemetry *parking.TelemetryProvider, in io.Reader, out io.Writer, plateStrict bool) *Shell {
	return &Shell{
		service:     service,
		scanner:     bufio.NewScanner(in),
		out:         out,
		tracer:      telemetry.Tracer(),
		plateStrict: plateStrict,
	}
}

func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")
	s.printf("Parking facility with %d spaces. Type 'help' for commands.\n", s.service.Capacity())

	for ctx.Err() == nil {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		// Create a new span for each command
		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		quit := s.processCommand(cmdCtx, input)
		cmdSpan.End()

		if quit {
			break
		}
	}

	// Scan also stops on read errors and on lines past the buffer limit.
	if err := s.scanner.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading input")
		s.printf("Input error: %s\n", err.Error())
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) (quit bool) {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "enter", "park":
		s.handleEnter(ctx, parts)
	case "exit", "leave":
		s.handleExit(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "stats":
		s.handleStats(ctx)
	case "save":
		s.handleSave(ctx)
	case "load":
		s.handleLoad(ctx)
	case "receipts":
		s.handleReceipts(ctx, parts)
	case "help":
		s.printHelp()
	case "quit", "0":
		return true
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
	return false
}

func (s *Shell) plateArg(parts []string, usage string) (string, bool) {
	if len(parts) != 2 {
		s.printf("Usage: %s\n", usage)
		return "", false
	}
	if err := ValidatePlate(parts[1], s.plateStrict); err != nil {
		s.printf("Invalid plate: %s\n", err.Error())
		return "", false
	}
	return parts[1], true
}

func (s *Shell) handleEnter(ctx context.Context, parts []string) {
	plate, ok := s.plateArg(parts, "enter <plate>")
	if !ok {
		return
	}

	entry, err := s.service.Enter(ctx, plate)
	switch {
	case errors.Is(err, parking.ErrExists):
		s.printf("Plate %s is already in the facility or the waiting area\n", plate)
	case err != nil:
		s.printf("Error: %s\n", err.Error())
	case entry.Placement == parking.Waiting:
		s.printf("Facility full, %s is waiting at position %d\n", plate, entry.Position)
	default:
		s.printf("%s parked in space %d\n", plate, entry.Position)
	}
}

func (s *Shell) handleExit(ctx context.Context, parts []string) {
	plate, ok := s.plateArg(parts, "exit <plate>")
	if !ok {
		return
	}

	receipt, err := s.service.Exit(ctx, plate)
	switch {
	case errors.Is(err, parking.ErrEmpty):
		s.printf("The facility is empty\n")
		return
	case errors.Is(err, parking.ErrNotFound):
		s.printf("Plate %s is not parked in the facility\n", plate)
		return
	case err != nil:
		s.printf("Error: %s\n", err.Error())
		return
	}

	hours, minutes, seconds := splitDuration(receipt.Duration)
	s.printf("Plate:     %s\n", receipt.Plate)
	s.printf("Arrived:   %s\n", receipt.ArrivedAt.Format(timeLayout))
	s.printf("Departed:  %s\n", receipt.DepartedAt.Format(timeLayout))
	s.printf("Duration:  %dh %dm %ds\n", hours, minutes, seconds)
	s.printf("Rate:      %.2f/hour\n", receipt.HourlyRate)
	s.printf("Fee:       %.2f\n", receipt.Fee)
	if receipt.Relocated > 0 {
		s.printf("%d car(s) moved aside and returned\n", receipt.Relocated)
	}
	if receipt.Promoted != nil {
		s.printf("%s moved in from the waiting area\n", receipt.Promoted.Plate)
	}
}

func (s *Shell) handleStatus(ctx context.Context) {
	status := s.service.Status(ctx)

	s.printf("Capacity %d, occupied %d, free %d, waiting %d\n",
		status.Capacity, status.Occupied, status.Free, status.WaitingCount)

	if len(status.ParkedPlates) == 0 {
		s.printf("No cars parked\n")
	} else {
		s.printf("Space\tPlate\n")
		for i, plate := range status.ParkedPlates {
			s.printf("%d\t%s\n", i+1, plate)
		}
	}

	if len(status.WaitingPlates) > 0 {
		s.printf("Waiting\tPlate\n")
		for i, plate := range status.WaitingPlates {
			s.printf("%d\t%s\n", i+1, plate)
		}
	}
}

func (s *Shell) handleStats(ctx context.Context) {
	stats := s.service.Stats(ctx)

	days := int(stats.Uptime / (24 * time.Hour))
	hours, minutes, _ := splitDuration(stats.Uptime % (24 * time.Hour))

	s.printf("Started:        %s\n", stats.StartedAt.Format(timeLayout))
	s.printf("Uptime:         %dd %dh %dm\n", days, hours, minutes)
	s.printf("Cars served:    %d\n", stats.TotalServed)
	s.printf("Total revenue:  %.2f\n", stats.TotalRevenue)
	if stats.HourlyAverage > 0 {
		s.printf("Hourly average: %.2f\n", stats.HourlyAverage)
	}
}

func (s *Shell) handleSave(ctx context.Context) {
	if err := s.service.Save(ctx); err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	s.printf("State saved\n")
}

func (s *Shell) handleLoad(ctx context.Context) {
	loaded, err := s.service.Load(ctx)
	switch {
	case err != nil:
		s.printf("Error: %s\n", err.Error())
	case !loaded:
		s.printf("No saved state\n")
	default:
		s.printf("State loaded\n")
	}
}

func (s *Shell) handleReceipts(ctx context.Context, parts []string) {
	limit := 10
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			s.printf("Usage: receipts [count]\n")
			return
		}
		limit = n
	}

	entries, err := s.service.Receipts(ctx, limit)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	if len(entries) == 0 {
		s.printf("No receipts\n")
		return
	}

	for _, e := range entries {
		s.printf("%s\t%s\t%s\t%.2f\n", e.ID, e.Receipt.Plate, e.Receipt.DepartedAt.Format(timeLayout), e.Receipt.Fee)
	}
}

func (s *Shell) printHelp() {
	s.printf("Commands:\n")
	s.printf("  enter <plate>     park a car, or queue it when full\n")
	s.printf("  exit <plate>      release a parked car and charge it\n")
	s.printf("  status            list parked and waiting cars\n")
	s.printf("  stats             show totals since start\n")
	s.printf("  save | load       write or read the saved state\n")
	s.printf("  receipts [n]      show the latest receipts\n")
	s.printf("  quit              leave the console\n")
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func splitDuration(d time.Duration) (hours, minutes, seconds int) {
	total := int(d / time.Second)
	return total / 3600, total % 3600 / 60, total % 60
}
