// Package mcptools serves a registry of tools to MCP clients over JSON-RPC.
//
//	srv := mcptools.NewServer(mcptools.ServerInfo{Name: "mcp-tools", Version: "1.0.0"})
//	srv.Tool("meal_register").
//	    Description("Record and query meals").
//	    Handler(func(ctx context.Context, in meal.Request) (meal.Envelope, error) { ... })
//
//	mcptools.ServeStdio(ctx, srv, mcptools.WithMiddleware(middleware.DefaultStack(logger, cfg)...))
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/thadeucbr/mcp-tools/middleware"
	"github.com/thadeucbr/mcp-tools/protocol"
	"github.com/thadeucbr/mcp-tools/server"
	"github.com/thadeucbr/mcp-tools/transport"
)

// ServerInfo names the server during initialize.
type ServerInfo = server.Info

// Server is the tool registry.
type Server = server.Server

// NewServer creates a tool registry.
func NewServer(info ServerInfo, opts ...server.Option) *Server {
	return server.New(info, opts...)
}

// ServeOption configures request handling.
type ServeOption func(*serveOptions)

type serveOptions struct {
	middleware []middleware.Middleware
	logger     middleware.Logger
}

// WithMiddleware appends middleware to the request chain.
func WithMiddleware(m ...middleware.Middleware) ServeOption {
	return func(o *serveOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithLogger sets the logger used for tool failures and cancellations.
func WithLogger(l middleware.Logger) ServeOption {
	return func(o *serveOptions) {
		o.logger = l
	}
}

// ServeStdio serves srv on stdin/stdout until EOF or ctx is canceled.
func ServeStdio(ctx context.Context, srv *Server, opts ...ServeOption) error {
	return transport.NewStdio().Serve(ctx, NewHandler(srv, opts...))
}

// ServeHTTP serves srv on addr until ctx is canceled.
func ServeHTTP(ctx context.Context, srv *Server, addr string, httpOpts []transport.HTTPOption, opts ...ServeOption) error {
	return transport.NewHTTP(addr, httpOpts...).Serve(ctx, NewHandler(srv, opts...))
}

// ServeWebSocket serves srv over WebSocket on addr until ctx is canceled.
func ServeWebSocket(ctx context.Context, srv *Server, addr string, wsOpts []transport.WebSocketOption, opts ...ServeOption) error {
	return transport.NewWebSocket(addr, wsOpts...).Serve(ctx, NewHandler(srv, opts...))
}

// Handler dispatches JSON-RPC requests to a Server. It implements
// transport.Handler.
type Handler struct {
	srv     *Server
	logger  middleware.Logger
	cancels *server.CancellationRegistry
	chain   middleware.HandlerFunc
}

// NewHandler wraps srv with the configured middleware.
func NewHandler(srv *Server, opts ...ServeOption) *Handler {
	options := &serveOptions{logger: middleware.NopLogger{}}
	for _, opt := range opts {
		opt(options)
	}

	h := &Handler{
		srv:     srv,
		logger:  options.logger,
		cancels: server.NewCancellationRegistry(),
	}
	h.chain = middleware.Chain(options.middleware...)(h.handle)
	return h
}

// HandleRequest runs req through the middleware chain.
func (h *Handler) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return h.chain(ctx, req)
}

func (h *Handler) handle(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return h.handleInitialize(req)
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodCancelled:
		h.handleCancelled(req)
		return nil, nil
	case protocol.MethodPing:
		return protocol.NewResponse(req.ID, map[string]any{}), nil
	case protocol.MethodToolsList:
		return h.handleToolsList(req)
	case protocol.MethodToolsCall:
		return h.handleToolsCall(ctx, req)
	default:
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}

func (h *Handler) handleInitialize(req *protocol.Request) (*protocol.Response, error) {
	manifest := h.srv.Manifest()

	result := map[string]any{
		"protocolVersion": manifest.ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    manifest.Name,
			"version": manifest.Version,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
	}
	if instructions := h.srv.Instructions(); instructions != "" {
		result["instructions"] = instructions
	}
	return protocol.NewResponse(req.ID, result), nil
}

func (h *Handler) handleCancelled(req *protocol.Request) {
	var params struct {
		RequestID json.RawMessage `json:"requestId"`
		Reason    string          `json:"reason"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params.RequestID) == 0 {
		return
	}
	if h.cancels.Cancel(string(params.RequestID)) {
		h.logger.Info("request cancelled",
			middleware.F("request", string(params.RequestID)),
			middleware.F("reason", params.Reason),
		)
	}
}

func (h *Handler) handleToolsList(req *protocol.Request) (*protocol.Response, error) {
	tools := h.srv.Tools()

	list := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		item := map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		}
		if t.Annotations != nil {
			item["annotations"] = t.Annotations
		}
		list = append(list, item)
	}
	return protocol.NewResponse(req.ID, map[string]any{"tools": list}), nil
}

func (h *Handler) handleToolsCall(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}
	if params.Name == "" {
		return nil, protocol.NewInvalidParams("tool name is required")
	}

	tool, ok := h.srv.GetTool(params.Name)
	if !ok {
		return nil, protocol.NewNotFound("tool not found: " + params.Name)
	}

	if !req.IsNotification() {
		var release func()
		ctx, release = h.cancels.Track(ctx, string(req.ID))
		defer release()
	}

	result, err := tool.Execute(ctx, params.Arguments)
	if err != nil {
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		h.logger.Warn("tool failed", middleware.F("tool", params.Name), middleware.F("error", err.Error()))
		middleware.AddSpanEvent(ctx, "tool.error", attribute.String("error", err.Error()))
		return protocol.NewResponse(req.ID, toolResult(err.Error(), true)), nil
	}

	text, err := resultText(result)
	if err != nil {
		return nil, protocol.NewInternalError(fmt.Sprintf("encode result: %v", err))
	}
	return protocol.NewResponse(req.ID, toolResult(text, false)), nil
}

func toolResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"isError": isError,
	}
}

// resultText renders a tool result: strings verbatim, everything else as JSON.
func resultText(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
