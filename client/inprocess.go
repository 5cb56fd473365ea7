package client

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/thadeucbr/mcp-tools/protocol"
	"github.com/thadeucbr/mcp-tools/transport"
)

// InProcessTransport calls a transport.Handler directly. Responses are
// round-tripped through JSON so callers see the same shapes as on the wire.
type InProcessTransport struct {
	handler transport.Handler
}

// NewInProcessTransport wraps handler.
func NewInProcessTransport(handler transport.Handler) *InProcessTransport {
	return &InProcessTransport{handler: handler}
}

// Send runs req through the handler.
func (t *InProcessTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	resp, err := t.handler.HandleRequest(ctx, req)
	if err != nil {
		var rpcErr *protocol.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = protocol.NewInternalError(err.Error())
		}
		return protocol.NewErrorResponse(req.ID, rpcErr), nil
	}
	if resp == nil {
		return nil, nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	var wire protocol.Response
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	return &wire, nil
}

// Notify runs a notification through the handler, discarding any response.
func (t *InProcessTransport) Notify(ctx context.Context, req *protocol.Request) error {
	_, err := t.handler.HandleRequest(ctx, req)
	return err
}

// Close is a no-op.
func (t *InProcessTransport) Close() error {
	return nil
}
