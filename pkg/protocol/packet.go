package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PacketType identifies the type of packet.
type PacketType byte

const (
	Open    PacketType = 0 // Handshake document
	Close   PacketType = 1 // Transport close request
	Ping    PacketType = 2 // Client heartbeat
	Pong    PacketType = 3 // Heartbeat reply
	Message PacketType = 4 // Application data
	Upgrade PacketType = 5 // Transport upgrade complete
	Noop    PacketType = 6 // Poll flush
)

// binaryMarker prefixes base64 encoded binary packets on text transports.
const binaryMarker = 'b'

// String returns the string representation of the packet type.
func (pt PacketType) String() string {
	switch pt {
	case Open:
		return "Open"
	case Close:
		return "Close"
	case Ping:
		return "Ping"
	case Pong:
		return "Pong"
	case Message:
		return "Message"
	case Upgrade:
		return "Upgrade"
	case Noop:
		return "Noop"
	default:
		return "Unknown"
	}
}

// Valid reports whether pt is a known packet type.
func (pt PacketType) Valid() bool {
	return pt <= Noop
}

// Packet is a single Engine.IO packet.
type Packet struct {
	Type   PacketType
	Data   []byte
	Binary bool
}

// OpenPayload is the handshake document carried by the Open packet.
type OpenPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingTimeout  int64    `json:"pingTimeout"`
	PingInterval int64    `json:"pingInterval"`
}

// NewOpen builds the Open packet for a new session.
func NewOpen(p OpenPayload) (Packet, error) {
	if p.Upgrades == nil {
		p.Upgrades = []string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return Packet{}, fmt.Errorf("protocol: encode open payload: %w", err)
	}
	return Packet{Type: Open, Data: data}, nil
}

// NewMessage builds a Message packet.
func NewMessage(data []byte, binary bool) Packet {
	return Packet{Type: Message, Data: data, Binary: binary}
}

// Encode returns the wire form of the packet.
//
// Text packets encode as the type digit followed by the data. Binary packets
// encode as "b", the type digit and the base64 data when b64 is set, and as
// the raw type byte followed by the data otherwise (WebSocket binary frames).
func (p Packet) Encode(b64 bool) []byte {
	if !p.Binary {
		out := make([]byte, 0, 1+len(p.Data))
		out = append(out, '0'+byte(p.Type))
		return append(out, p.Data...)
	}

	if !b64 {
		out := make([]byte, 0, 1+len(p.Data))
		out = append(out, byte(p.Type))
		return append(out, p.Data...)
	}

	n := base64.StdEncoding.EncodedLen(len(p.Data))
	out := make([]byte, 2+n)
	out[0] = binaryMarker
	out[1] = '0' + byte(p.Type)
	base64.StdEncoding.Encode(out[2:], p.Data)
	return out
}

// DecodePacket decodes a single packet. binaryFrame is true when the bytes
// arrived in a WebSocket binary frame.
func DecodePacket(b []byte, binaryFrame bool) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, ErrEmptyPacket
	}

	if binaryFrame {
		pt := PacketType(b[0])
		if !pt.Valid() {
			return Packet{}, fmt.Errorf("%w: %d", ErrUnknownPacketType, b[0])
		}
		return Packet{Type: pt, Data: cloneBytes(b[1:]), Binary: true}, nil
	}

	if b[0] == binaryMarker {
		if len(b) < 2 {
			return Packet{}, ErrEmptyPacket
		}
		pt, err := digitType(b[1])
		if err != nil {
			return Packet{}, err
		}
		data := make([]byte, base64.StdEncoding.DecodedLen(len(b)-2))
		n, err := base64.StdEncoding.Decode(data, b[2:])
		if err != nil {
			return Packet{}, fmt.Errorf("protocol: decode base64 packet: %w", err)
		}
		return Packet{Type: pt, Data: data[:n], Binary: true}, nil
	}

	pt, err := digitType(b[0])
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: pt, Data: cloneBytes(b[1:])}, nil
}

func digitType(c byte) (PacketType, error) {
	if c < '0' || c > '0'+byte(Noop) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPacketType, c)
	}
	return PacketType(c - '0'), nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
