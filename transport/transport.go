// Package transport carries JSON-RPC messages between clients and the tool
// server over stdio, HTTP and WebSocket.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/thadeucbr/mcp-tools/protocol"
)

// Handler processes incoming requests.
type Handler interface {
	HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// HandleRequest calls f(ctx, req).
func (f HandlerFunc) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, req)
}

// Transport is a blocking message loop.
type Transport interface {
	// Serve runs until ctx is canceled or the transport fails.
	Serve(ctx context.Context, handler Handler) error

	// Addr describes where the transport listens.
	Addr() string
}

// process decodes one message, runs it through handler and returns the
// response to write. It returns nil for notifications.
func process(ctx context.Context, handler Handler, raw []byte) *protocol.Response {
	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error()))
	}
	if req.JSONRPC != protocol.JSONRPCVersion || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewErrorResponse(req.ID, protocol.NewInvalidRequest("jsonrpc must be \"2.0\" and method is required"))
	}

	resp, err := handler.HandleRequest(ctx, &req)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return resp
}

func errorResponse(id json.RawMessage, err error) *protocol.Response {
	var rpcErr *protocol.Error
	if errors.As(err, &rpcErr) {
		return protocol.NewErrorResponse(id, rpcErr)
	}
	return protocol.NewErrorResponse(id, protocol.NewInternalError(err.Error()))
}
