package database

import (
	"errors"

	"content-planner-backend/pkg/apperr"
)

// AppError classifies a store error for presentation. Errors that are
// already classified pass through unchanged.
func AppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(err)
	case errors.Is(err, ErrUnauthorized):
		return apperr.Auth(err)
	default:
		return apperr.Remote(err)
	}
}
