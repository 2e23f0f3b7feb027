package codec

import "errors"

var (
	// ErrEmptyKey is returned when an empty passphrase is supplied.
	ErrEmptyKey = errors.New("codec: empty key")
)
