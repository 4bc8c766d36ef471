package employee

import "errors"

var (
	ErrInvalidProfile = errors.New("invalid pay profile")
	ErrNameRequired   = errors.New("employee name is required")
)
