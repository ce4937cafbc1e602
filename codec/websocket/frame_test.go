package websocket

import (
	"bytes"
	"testing"
)

func TestFrameTextRoundTrip(t *testing.T) {
	f := NewFrame()
	f.SetFIN()
	f.SetText()
	f.SetPayload([]byte("hello world"))
	f.Mask()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	decoded := NewFrame()
	if _, err := decoded.ReadFrom(&buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	if !decoded.IsFIN() || !decoded.Opcode().IsText() {
		t.Fatalf("expected FIN text frame, got fin=%v opcode=%v", decoded.IsFIN(), decoded.Opcode())
	}
	if !decoded.IsMasked() {
		t.Fatalf("expected masked frame")
	}

	decoded.Unmask()
	if string(decoded.Payload()) != "hello world" {
		t.Fatalf("expected payload 'hello world', got %q", decoded.Payload())
	}
}

func TestFrameExtendedPayloadLength(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 70000)

	f := NewFrame()
	f.SetFIN()
	f.SetBinary()
	f.SetPayload(payload)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f.ExtraHeaderLen() != 8 {
		t.Fatalf("expected 8-byte extended length for payload > 65535, got %d", f.ExtraHeaderLen())
	}

	decoded := NewFrame()
	if _, err := decoded.ReadFrom(&buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if decoded.PayloadLength() != len(payload) {
		t.Fatalf("expected payload length %d, got %d", len(payload), decoded.PayloadLength())
	}
}

func TestFramePayloadTooBig(t *testing.T) {
	f := NewFrame()
	f.header[1] = 127
	// claim a payload length far beyond MaxMessageSize
	for i := 2; i < 10; i++ {
		f.header[i] = 0xFF
	}

	decoded := NewFrame()
	r := bytes.NewReader(append(append([]byte{}, f.header...), make([]byte, 0)...))
	if _, err := decoded.ReadFrom(r); err != ErrPayloadTooBig {
		t.Fatalf("expected ErrPayloadTooBig, got %v", err)
	}
}

func TestFrameControlFrameFlags(t *testing.T) {
	f := NewFrame()
	f.SetFIN()
	f.SetClose()
	f.SetPayload(EncodeCloseFramePayload(CloseNormal, "bye"))

	if !f.Opcode().IsControl() || !f.Opcode().IsClose() {
		t.Fatalf("expected close control frame")
	}

	cc, reason := DecodeCloseFramePayload(f.Payload())
	if cc != CloseNormal || reason != "bye" {
		t.Fatalf("expected CloseNormal/'bye', got %v/%q", cc, reason)
	}
}
