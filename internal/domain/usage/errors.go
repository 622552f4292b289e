package usage

import "errors"

// ErrMalformedLine is returned when a stored usage line cannot be parsed.
var ErrMalformedLine = errors.New("malformed usage line")
