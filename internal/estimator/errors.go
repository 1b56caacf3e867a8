package estimator

import "errors"

var (
	ErrInvalidRegistry = errors.New("invalid estimator registry")
	ErrUnknownKind     = errors.New("unknown estimator kind")
)
