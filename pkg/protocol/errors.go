package protocol

import "errors"

// Sentinel errors returned by the decoders.
var (
	// ErrEmptyPacket is returned when decoding an empty packet.
	ErrEmptyPacket = errors.New("protocol: empty packet")

	// ErrUnknownPacketType is returned for a type outside Open..Noop.
	ErrUnknownPacketType = errors.New("protocol: unknown packet type")

	// ErrInvalidPayload is returned when a polling payload is not well formed.
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)
