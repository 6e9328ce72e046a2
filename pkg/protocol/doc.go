// Package protocol implements the Engine.IO (revision 3) packet codec.
//
// A packet is a single type digit followed by an optional payload:
//
//	┌────────────┬──────────────────────────────┐
//	│ Type       │ Data                         │
//	│ (1 char)   │ (text or base64 for binary)  │
//	└────────────┴──────────────────────────────┘
//
// # Packet Types
//
//   - Open (0): Sent by the server once, carries the handshake document
//   - Close (1): Requests that the transport be closed
//   - Ping (2): Sent by the client, answered with Pong
//   - Pong (3): Reply to Ping, echoes the ping data
//   - Message (4): Application payload
//   - Upgrade (5): Completes a transport upgrade
//   - Noop (6): Flushes a pending poll during upgrade
//
// # Payloads
//
// The polling transport may carry several packets in one HTTP body. Each
// packet is prefixed with its length in characters and a colon:
//
//	6:4hello2:4!
//
// Binary packets are base64 encoded on the polling wire and marked with a
// leading "b":
//
//	10:b4AQIDBA==
//
// Over WebSocket every frame carries exactly one packet. Text packets use
// text frames; binary packets use binary frames whose first byte is the raw
// packet type.
package protocol
