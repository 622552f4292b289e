package schedule

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid schedule config")
	ErrInvalidScale  = errors.New("invalid scale_dict")
	ErrParseYAML     = errors.New("parse config yaml")
)
