package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodePayload(t *testing.T) {
	packets := []Packet{
		NewMessage([]byte("hello"), false),
		NewMessage([]byte("é"), false),
		NewMessage([]byte{1, 2, 3, 4}, true),
	}

	got := string(EncodePayload(packets))
	want := "6:4hello2:4é10:b4AQIDBA=="
	if got != want {
		t.Errorf("EncodePayload() = %q, want %q", got, want)
	}
}

func TestDecodePayload(t *testing.T) {
	packets, err := DecodePayload([]byte("6:4hello2:4é1:2"))
	if err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("len(packets) = %d, want 3", len(packets))
	}
	if packets[0].Type != Message || string(packets[0].Data) != "hello" {
		t.Errorf("packets[0] = %+v", packets[0])
	}
	if string(packets[1].Data) != "é" {
		t.Errorf("packets[1].Data = %q, want é", packets[1].Data)
	}
	if packets[2].Type != Ping {
		t.Errorf("packets[2].Type = %v, want Ping", packets[2].Type)
	}
}

func TestDecodePayloadBinary(t *testing.T) {
	packets, err := DecodePayload([]byte("10:b4AQIDBA=="))
	if err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if !packets[0].Binary || !bytes.Equal(packets[0].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("packets[0] = %+v", packets[0])
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	cases := []string{
		"",
		"abc",
		":4hi",
		"0:",
		"9:4hi",
		"3x4hi",
	}
	for _, in := range cases {
		if _, err := DecodePayload([]byte(in)); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("DecodePayload(%q) err = %v, want ErrInvalidPayload", in, err)
		}
	}
}
