package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/wiredraw-server/internal/shape"
)

// Error codes echoed back in error frames.
const (
	CodeInvalidJSON    = "invalid_json"
	CodeInvalidMessage = "invalid_message"
)

var (
	// ErrMalformed is returned when a frame is not valid JSON.
	ErrMalformed = errors.New("malformed frame")
	// ErrUnknownType is returned for frame types outside the protocol.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMissingField is returned when a required frame field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidPayload is returned when the embedded message does not hold a valid shape payload.
	ErrInvalidPayload = errors.New("invalid message payload")
)

// ValidationError describes why an inbound frame was rejected.
type ValidationError struct {
	Code string
	Msg  string
	Err  error
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(code string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Frame is an inbound frame that passed validation.
type Frame struct {
	Type   string
	RoomID int64
	// Message is the raw serialized payload for chat and erase frames.
	Message string
	// Shape is set for chat frames.
	Shape shape.Shape
	// Erase holds the descriptors of an erase frame.
	Erase []shape.Shape
}

// Decode parses a raw frame and validates it against the protocol. It never
// panics; any problem is reported as a *ValidationError.
func Decode(raw []byte) (*Frame, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return nil, invalid(CodeInvalidMessage, ErrMissingField, "frame must be an object")
			}
			return nil, invalid(CodeInvalidMessage, ErrMissingField, "field %s has the wrong type", typeErr.Field)
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || !json.Valid(raw) {
			return nil, invalid(CodeInvalidJSON, ErrMalformed, "frame is not valid JSON")
		}
		return nil, invalid(CodeInvalidMessage, ErrMissingField, "invalid frame: %v", err)
	}

	switch in.Type {
	case InboundTypeJoinRoom, InboundTypeLeaveRoom, InboundTypeChat, InboundTypeErase:
	case "":
		return nil, invalid(CodeInvalidMessage, ErrMissingField, "type is required")
	default:
		return nil, invalid(CodeInvalidMessage, ErrUnknownType, "unknown message type %q", in.Type)
	}

	if in.RoomID == nil {
		return nil, invalid(CodeInvalidMessage, ErrMissingField, "roomId is required")
	}
	frame := &Frame{Type: in.Type, RoomID: int64(*in.RoomID)}

	switch in.Type {
	case InboundTypeJoinRoom, InboundTypeLeaveRoom:
		return frame, nil
	}

	if in.Message == nil {
		return nil, invalid(CodeInvalidMessage, ErrMissingField, "message is required")
	}
	frame.Message = *in.Message

	if in.Type == InboundTypeChat {
		s, err := shape.ParseEnvelope(frame.Message)
		if err != nil {
			return nil, invalid(CodeInvalidMessage, errors.Join(ErrInvalidPayload, err), "invalid shape: %v", err)
		}
		frame.Shape = s
		return frame, nil
	}

	descriptors, err := shape.ParseEraseRequest(frame.Message)
	if err != nil {
		return nil, invalid(CodeInvalidMessage, errors.Join(ErrInvalidPayload, err), "invalid erase request: %v", err)
	}
	frame.Erase = descriptors
	return frame, nil
}
