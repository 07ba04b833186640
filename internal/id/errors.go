package id

import "errors"

// ErrShortIDOverflow is returned when a catalog-C cross-reference id is
// longer than the 16-byte inline storage can hold.
var ErrShortIDOverflow = errors.New("id: short id exceeds 16 bytes")
