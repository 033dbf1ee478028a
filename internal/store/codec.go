package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"lifo-parking/internal/parking"
)

// Layout, little-endian:
//
//	stats   int64 served | float64 revenue | int64 startedAt
//	int32 parkedCount  | car × parkedCount  (bottom to top)
//	int32 waitingCount | car × waitingCount (front to rear)
//	car     [plateWidth]byte plate | int64 arrivedAt | int64 departedAt
const plateWidth = parking.MaxPlateLen + 1

var byteOrder = binary.LittleEndian

type statsRecord struct {
	TotalServed  int64
	TotalRevenue uint64
	StartedAt    int64
}

type carRecord struct {
	Plate      [plateWidth]byte
	ArrivedAt  int64
	DepartedAt int64
}

func Encode(w io.Writer, state parking.State) error {
	bw := bufio.NewWriter(w)

	stats := statsRecord{
		TotalServed:  state.Stats.TotalServed,
		TotalRevenue: math.Float64bits(state.Stats.TotalRevenue),
		StartedAt:    epoch(state.Stats.StartedAt),
	}
	if err := binary.Write(bw, byteOrder, stats); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	if err := encodeCars(bw, state.Parked); err != nil {
		return fmt.Errorf("write parked cars: %w", err)
	}
	if err := encodeCars(bw, state.Waiting); err != nil {
		return fmt.Errorf("write waiting cars: %w", err)
	}

	return bw.Flush()
}

func EncodeBytes(state parking.State) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCars(w io.Writer, cars []parking.Car) error {
	if len(cars) > math.MaxInt32 {
		return fmt.Errorf("too many cars: %d", len(cars))
	}
	if err := binary.Write(w, byteOrder, int32(len(cars))); err != nil {
		return err
	}

	for _, car := range cars {
		if car.Plate == "" || len(car.Plate) > parking.MaxPlateLen || strings.IndexByte(car.Plate, 0) >= 0 {
			return fmt.Errorf("%w: %q", parking.ErrInvalidPlate, car.Plate)
		}
		rec := carRecord{
			ArrivedAt:  epoch(car.ArrivedAt),
			DepartedAt: epoch(car.DepartedAt),
		}
		copy(rec.Plate[:], car.Plate)
		if err := binary.Write(w, byteOrder, rec); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a state written by Encode. Any short read, bad count or
// trailing data is reported as ErrCorruptState.
func Decode(r io.Reader) (parking.State, error) {
	br := bufio.NewReader(r)

	var stats statsRecord
	if err := binary.Read(br, byteOrder, &stats); err != nil {
		return parking.State{}, corrupt("stats", err)
	}

	parked, err := decodeCars(br)
	if err != nil {
		return parking.State{}, corrupt("parked cars", err)
	}
	waiting, err := decodeCars(br)
	if err != nil {
		return parking.State{}, corrupt("waiting cars", err)
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return parking.State{}, corrupt("trailer", errors.New("unexpected trailing data"))
	}

	return parking.State{
		Stats: parking.Stats{
			TotalServed:  stats.TotalServed,
			TotalRevenue: math.Float64frombits(stats.TotalRevenue),
			StartedAt:    fromEpoch(stats.StartedAt),
		},
		Parked:  parked,
		Waiting: waiting,
	}, nil
}

func DecodeBytes(data []byte) (parking.State, error) {
	return Decode(bytes.NewReader(data))
}

func decodeCars(r io.Reader) ([]parking.Car, error) {
	var count int32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("negative count %d", count)
	}

	// Grow as records arrive; count is untrusted until they are read.
	var cars []parking.Car
	for i := int32(0); i < count; i++ {
		var rec carRecord
		if err := binary.Read(r, byteOrder, &rec); err != nil {
			return nil, fmt.Errorf("car %d of %d: %w", i+1, count, err)
		}

		n := bytes.IndexByte(rec.Plate[:], 0)
		if n <= 0 {
			return nil, fmt.Errorf("car %d of %d: bad plate field", i+1, count)
		}

		cars = append(cars, parking.Car{
			Plate:      string(rec.Plate[:n]),
			ArrivedAt:  fromEpoch(rec.ArrivedAt),
			DepartedAt: fromEpoch(rec.DepartedAt),
		})
	}
	if cars == nil {
		cars = []parking.Car{}
	}
	return cars, nil
}

func corrupt(section string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptState, section, err)
}

func epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromEpoch(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
