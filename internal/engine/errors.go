package engine

import "errors"

// ErrInvalidInput is returned when a caller-supplied argument fails
// validation at the Engine boundary: a malformed collection name, for
// instance.
var ErrInvalidInput = errors.New("keep: invalid input")
