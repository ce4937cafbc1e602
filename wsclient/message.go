package wsclient

import "github.com/wirepath/wirepath/codec/websocket"

// MessageKind tags a delivered Message with what produced it, extending
// the wire opcodes with two synthetic kinds: OPEN (delivered once per
// successful handshake) and BAD (delivered when the peer violates the
// protocol, e.g. with an unrecognized opcode or a malformed frame or
// message).
type MessageKind uint8

const (
	MessageOpen MessageKind = iota
	MessageText
	MessageBinary
	MessagePing
	MessagePong
	MessageClose
	MessageBad
)

func (k MessageKind) String() string {
	switch k {
	case MessageOpen:
		return "open"
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	case MessagePing:
		return "ping"
	case MessagePong:
		return "pong"
	case MessageClose:
		return "close"
	case MessageBad:
		return "bad"
	default:
		return "unknown"
	}
}

// Message is what the user callback receives. Text is populated for
// MessageOpen/MessageText/MessageBad; Payload carries raw bytes for
// MessageBinary/MessagePing/MessagePong. MessageClose carries only a
// description of why the session ended in Text; its CloseCode and Payload
// are not set, so the peer's close code and reason are not reported.
type Message struct {
	Kind      MessageKind
	Text      string
	Payload   []byte
	CloseCode websocket.CloseCode
}
