package usage

import "errors"

var (
	// ErrBufferFull indicates an event was dropped because the recorder queue was full.
	ErrBufferFull = errors.New("usage buffer full")
	// ErrClosed indicates an event arrived after the recorder was closed.
	ErrClosed = errors.New("usage recorder closed")
)
