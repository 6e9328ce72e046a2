package protocol

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// EncodePayload encodes packets for the polling transport using the
// "<length>:<packet>" string framing, where length counts characters.
//
// Binary packets are always base64 encoded on this wire.
func EncodePayload(packets []Packet) []byte {
	var out []byte
	for _, p := range packets {
		enc := p.Encode(true)
		out = strconv.AppendInt(out, int64(utf8.RuneCount(enc)), 10)
		out = append(out, ':')
		out = append(out, enc...)
	}
	return out
}

// DecodePayload decodes a polling payload into its packets.
func DecodePayload(b []byte) ([]Packet, error) {
	var packets []Packet
	for len(b) > 0 {
		colon := -1
		for i, c := range b {
			if c == ':' {
				colon = i
				break
			}
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("%w: bad length prefix", ErrInvalidPayload)
			}
		}
		if colon <= 0 {
			return nil, fmt.Errorf("%w: missing length prefix", ErrInvalidPayload)
		}

		n, err := strconv.Atoi(string(b[:colon]))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad length %q", ErrInvalidPayload, b[:colon])
		}
		b = b[colon+1:]

		end := 0
		for i := 0; i < n; i++ {
			if end >= len(b) {
				return nil, fmt.Errorf("%w: truncated packet", ErrInvalidPayload)
			}
			_, size := utf8.DecodeRune(b[end:])
			end += size
		}

		p, err := DecodePacket(b[:end], false)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
		b = b[end:]
	}

	if len(packets) == 0 {
		return nil, fmt.Errorf("%w: no packets", ErrInvalidPayload)
	}
	return packets, nil
}
