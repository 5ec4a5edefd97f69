package channel

import (
	"errors"
	"fmt"

	"github.com/audioplayers/audioplayers/internal/player"
)

// ErrorCode is the short code sent to the host with an error response.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "InvalidArgument"
	CodeNotImplemented  ErrorCode = "NotImplemented"
	CodeUnexpectedError ErrorCode = "UnexpectedError"
	CodeLoadFailed      ErrorCode = "LoadFailed"
)

// Error is an error reported to the host.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an error with the cause's message.
func NewError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Message: cause.Error(), Cause: cause}
}

func invalidArgument(format string, args ...any) *Error {
	return NewError(CodeInvalidArgument, fmt.Errorf(format, args...))
}

// classify maps a player error onto a host error code.
func classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, player.ErrInvalidVolume), errors.Is(err, player.ErrInvalidRate):
		return NewError(CodeInvalidArgument, err)
	default:
		return NewError(CodeUnexpectedError, err)
	}
}
