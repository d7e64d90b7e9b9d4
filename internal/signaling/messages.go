package signaling

import (
	"encoding/json"
	"errors"

	"github.com/junsooki/rgbview/internal/driver"
)

// Message types of the control protocol.
const (
	TypeRegister     = "register"
	TypeRegistered   = "registered"
	TypeAcquire      = "acquire"
	TypeDriver       = "driver"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)

// Error codes carried by TypeError messages.
const (
	CodeCapabilityNotFound   = "capability-not-found"
	CodeUnknownDriver        = "unknown-driver"
	CodeInvalidConfiguration = "invalid-configuration"
	CodeBadRequest           = "bad-request"
	CodeInternal             = "internal"
)

// Message is the envelope for all control messages.
type Message struct {
	Type       string             `json:"type"`
	ID         string             `json:"id,omitempty"`
	Capability string             `json:"capability,omitempty"`
	Driver     *driver.Descriptor `json:"driver,omitempty"`
	Payload    json.RawMessage    `json:"payload,omitempty"`
	Code       string             `json:"code,omitempty"`
	Msg        string             `json:"message,omitempty"`
	Timestamp  int64              `json:"timestamp,omitempty"`
}

// Error is an error with a protocol error code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "signaling: " + e.Code
	}
	return "signaling: " + e.Code + ": " + e.Message
}

// ErrorCode returns the protocol code of err, CodeInternal if it has none.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func errorMessage(err error) Message {
	return Message{Type: TypeError, Code: ErrorCode(err), Msg: err.Error()}
}
