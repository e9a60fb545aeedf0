package core

import (
	"errors"

	"github.com/vovakirdan/wiredraw-server/internal/proto"
)

// Error codes for domain errors.
const (
	ErrCodePersistence = "persistence_error"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeUnavailable = "unavailable"
)

// ErrShuttingDown is returned when work is submitted after the hub stopped.
var ErrShuttingDown = errors.New("hub is shutting down")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Frame encodes the error as an outbound error frame.
func (e *CoreError) Frame() []byte {
	return proto.ErrorFrame(e.Code, e.Message)
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// fromValidation maps a decode failure to the error reported to the sender.
func fromValidation(err error) *CoreError {
	var vErr *proto.ValidationError
	if errors.As(err, &vErr) {
		return coreError(vErr.Code, vErr.Msg)
	}
	return coreError(proto.CodeInvalidMessage, err.Error())
}
