package protocol

import "fmt"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Server-defined error codes.
const (
	CodeNotFound    = -32001
	CodeRateLimited = -32003
)

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %s (code: %d)", e.Message, e.Code)
}

// Is matches errors by code so callers can compare against the constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithData returns a copy of the error carrying data.
func (e *Error) WithData(data any) *Error {
	c := *e
	c.Data = data
	return &c
}

func newError(code int, msg string) *Error { return &Error{Code: code, Message: msg} }

func NewParseError(msg string) *Error     { return newError(CodeParseError, msg) }
func NewInvalidRequest(msg string) *Error { return newError(CodeInvalidRequest, msg) }
func NewInvalidParams(msg string) *Error  { return newError(CodeInvalidParams, msg) }
func NewInternalError(msg string) *Error  { return newError(CodeInternalError, msg) }

// NewNotFound is returned for unknown tools.
func NewNotFound(msg string) *Error { return newError(CodeNotFound, msg) }

// NewRateLimited is returned by the rate limit middleware.
func NewRateLimited(msg string) *Error { return newError(CodeRateLimited, msg) }

func NewMethodNotFound(method string) *Error {
	return newError(CodeMethodNotFound, "method not found: "+method)
}
