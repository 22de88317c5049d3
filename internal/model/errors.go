package model

import "errors"

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("not found")

	ErrInvalidItem     = errors.New("invalid item")
	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidBatch    = errors.New("invalid batch")
	ErrInvalidAction   = errors.New("invalid action")

	ErrOverReservation = errors.New("reserved quantity exceeds current quantity")
	ErrLockBusy        = errors.New("stock entry is busy, try again later")
)
