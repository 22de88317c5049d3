package transport

import (
	"context"
	"errors"

	"github.com/reliefhub/stock-service/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status converts a domain error into a gRPC status error.
func Status(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(Code(err), err.Error())
}

func Code(err error) codes.Code {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, model.ErrDuplicateKey):
		return codes.AlreadyExists
	case errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidCoordinates),
		errors.Is(err, model.ErrInvalidItem),
		errors.Is(err, model.ErrInvalidLocation),
		errors.Is(err, model.ErrInvalidBatch),
		errors.Is(err, model.ErrInvalidAction):
		return codes.InvalidArgument
	case errors.Is(err, model.ErrOverReservation):
		return codes.FailedPrecondition
	case errors.Is(err, model.ErrLockBusy):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
