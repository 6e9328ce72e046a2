package socket

import "errors"

// Sentinel errors for socket operations.
var (
	// ErrSessionClosed is returned when an operation is attempted on a closed socket.
	ErrSessionClosed = errors.New("socket: session closed")

	// ErrPollTimeout is returned when no packet arrived within the ping timeout.
	ErrPollTimeout = errors.New("socket: poll timeout")

	// ErrInvalidTransition is returned for a lifecycle change the FSM forbids.
	ErrInvalidTransition = errors.New("socket: invalid state transition")

	// ErrContentTooLong is returned when a POST body exceeds MaxHTTPBufferSize.
	ErrContentTooLong = errors.New("socket: content too long")

	// ErrUnexpectedPacket is returned for a packet a client must not send.
	ErrUnexpectedPacket = errors.New("socket: unexpected packet")

	// ErrUpgradeFailed is returned when the WebSocket probe sequence fails.
	ErrUpgradeFailed = errors.New("socket: upgrade failed")
)
