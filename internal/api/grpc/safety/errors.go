package safety

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/safeguardian/internal/dispatch"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/engine"
	"github.com/oshokin/safeguardian/internal/logger"
)

// toStatus maps a domain error to a gRPC status error.
func toStatus(ctx context.Context, op string, err error) error {
	var (
		validation *contact.ValidationError
		notFound   *contact.NotFoundError
		protected  *contact.PrimaryContactProtectedError
	)

	switch {
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, validation.Error())
	case errors.As(err, &notFound):
		return status.Error(codes.NotFound, notFound.Error())
	case errors.As(err, &protected):
		return status.Error(codes.FailedPrecondition, protected.Error())
	case errors.Is(err, dispatch.ErrUnknownUrgency):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrClosed), errors.Is(err, dispatch.ErrClosed):
		return status.Error(codes.Unavailable, "engine is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		logger.ErrorKV(ctx, "Request failed", "operation", op, "error", err)

		return status.Error(codes.Internal, "unable to "+op)
	}
}
