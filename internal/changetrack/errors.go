package changetrack

import "errors"

var (
	ErrUnknownAlgorithm = errors.New("changetrack: unknown hash algorithm")
	ErrNilRecord        = errors.New("changetrack: nil record")
	ErrStoreClosed      = errors.New("changetrack: store not open")
)
