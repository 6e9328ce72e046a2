package socket

import "github.com/vango-dev/engineio/pkg/protocol"

// GetOutcome tags the result of a GET handled by a socket.
type GetOutcome int

const (
	// GetDelivered carries packets for a polling response body.
	GetDelivered GetOutcome = iota

	// GetTakeover means the transport took over the connection (WebSocket)
	// and the HTTP response has already been written.
	GetTakeover

	// GetSessionClosed means the session is gone.
	GetSessionClosed
)

// GetResult is the outcome of HandleGet.
type GetResult struct {
	Outcome GetOutcome
	Packets []protocol.Packet
	Err     error
}

// PostOutcome tags the result of a POST handled by a socket.
type PostOutcome int

const (
	// PostDelivered means every packet in the body was received.
	PostDelivered PostOutcome = iota

	// PostMalformed means the body could not be decoded or was rejected.
	PostMalformed

	// PostSessionClosed means the session is gone.
	PostSessionClosed
)

// PostResult is the outcome of HandlePost.
type PostResult struct {
	Outcome PostOutcome
	Err     error
}

func delivered(packets []protocol.Packet) GetResult {
	return GetResult{Outcome: GetDelivered, Packets: packets}
}

func takeover() GetResult {
	return GetResult{Outcome: GetTakeover}
}

func getClosed(err error) GetResult {
	return GetResult{Outcome: GetSessionClosed, Err: err}
}

func malformed(err error) PostResult {
	return PostResult{Outcome: PostMalformed, Err: err}
}
