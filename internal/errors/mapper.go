package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/oggyb/podmatch/internal/recommend"
	"github.com/oggyb/podmatch/internal/repository"
	"github.com/oggyb/podmatch/internal/utils/pagination"
)

// ErrInvalidArgument marks request validation failures. Wrap it with %w and
// a caller-facing message.
var ErrInvalidArgument = errors.New("invalid argument")

// HTTPStatus converts domain/infra errors into HTTP status codes. Keeps
// the handler layer clean by centralizing the mapping.
//
// Note DuplicateSwipe maps to 409 here; the swipe handler intercepts it
// earlier and answers 200, since a repeated swipe is a harmless no-op for
// the client, not an error to display.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, repository.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	case errors.Is(err, repository.ErrDuplicateSwipe):
		return http.StatusConflict

	case errors.Is(err, recommend.ErrInsufficientTrainingData):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, pagination.ErrInvalidToken):
		return http.StatusBadRequest

	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return 499 // client closed request

	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument creates a validation error carrying the given message.
func InvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}
