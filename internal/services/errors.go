package services

import (
	"errors"

	"github.com/nimasrn/co2-estimator/internal/model"
)

var (
	ErrNotFound = errors.New("error notfound")
)

// ValidationError reports a rejected user edit. It matches model.ErrValidation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == model.ErrValidation }
