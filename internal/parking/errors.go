package parking

import "errors"

var (
	ErrFull         = errors.New("parking facility is full")
	ErrExists       = errors.New("plate is already parked or waiting")
	ErrNotFound     = errors.New("plate is not parked in the facility")
	ErrEmpty        = errors.New("parking facility is empty")
	ErrRelocation   = errors.New("relocation failed")
	ErrInvalidPlate = errors.New("invalid plate")
	ErrInvalidState = errors.New("invalid facility state")
)
