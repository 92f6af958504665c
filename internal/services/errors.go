package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrAccessDenied    = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrLimitExceeded   = errors.New("column limit exceeded")
	ErrHasTasks        = errors.New("column still has tasks")
	ErrInvalidTarget   = errors.New("invalid target column")
	ErrInvalidPosition = errors.New("invalid position")
	ErrPersistence     = errors.New("persistence failure")
	ErrValidation      = errors.New("validation failed")
)

var taxonomy = []error{
	ErrAccessDenied,
	ErrNotFound,
	ErrLimitExceeded,
	ErrHasTasks,
	ErrInvalidTarget,
	ErrInvalidPosition,
	ErrPersistence,
	ErrValidation,
}

// storeErr folds a repository error into the service taxonomy. Errors that
// already carry a taxonomy sentinel pass through untouched.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", what, ErrPersistence, err)
}

func denied(reason string) error {
	return fmt.Errorf("%w: %s", ErrAccessDenied, reason)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
