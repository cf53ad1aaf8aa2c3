package ws

import "errors"

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrInvalidPayload   = errors.New("invalid event payload")
)

// Registry errors.
var (
	ErrNilConnection = errors.New("connection cannot be nil")
)
