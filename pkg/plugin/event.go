package plugin

import "fmt"

// Event identifies a broker event a hook can be registered for.
type Event int

const (
	// EventMessage fires for every message received by the broker,
	// before it is sent on to subscribers.
	EventMessage Event = iota + 1
)

func (e Event) String() string {
	switch e {
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Status is the result a hook reports to the host for a single event.
// Values follow the broker's own result codes.
type Status int

const (
	StatusSuccess      Status = 0
	StatusNoMem        Status = 1
	StatusNotSupported Status = 10
	StatusUnknown      Status = 13
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoMem:
		return "nomem"
	case StatusNotSupported:
		return "not_supported"
	case StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MessageEvent is the data delivered with EventMessage.
type MessageEvent struct {
	// ClientID names the client that published the message.
	ClientID string `json:"client_id"`

	// Topic the message was published to.
	Topic string `json:"topic"`

	// Payload is the raw message content. JSON encodes it as base64.
	Payload []byte `json:"payload"`

	QoS    byte `json:"qos"`
	Retain bool `json:"retain"`
}
