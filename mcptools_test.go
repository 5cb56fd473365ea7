package mcptools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/thadeucbr/mcp-tools/middleware"
	"github.com/thadeucbr/mcp-tools/protocol"
	"github.com/thadeucbr/mcp-tools/server"
	"github.com/thadeucbr/mcp-tools/transport"
)

type greetInput struct {
	Name string `json:"name" jsonschema:"required,description=Who to greet"`
}

type sumInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newTestServer() *Server {
	srv := NewServer(ServerInfo{Name: "test-server", Version: "1.0.0"},
		server.WithInstructions("use greet"))

	srv.Tool("greet").
		Description("Greets someone").
		ValidateInput().
		ReadOnly().
		Handler(func(in greetInput) (string, error) {
			return "hello " + in.Name, nil
		})

	srv.Tool("sum").
		Description("Adds numbers").
		Handler(func(_ context.Context, in sumInput) (map[string]int, error) {
			return map[string]int{"sum": in.A + in.B}, nil
		})

	srv.Tool("fail").
		Description("Always fails").
		Handler(func(struct{}) (string, error) {
			return "", errors.New("upstream refused")
		})

	srv.Tool("slow").
		Description("Waits for cancellation").
		Handler(func(ctx context.Context, _ struct{}) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "finished", nil
			}
		})

	return srv
}

func call(t *testing.T, h *Handler, method string, params any) *protocol.Response {
	t.Helper()
	req, err := protocol.NewRequest(1, method, params)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := h.HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", method, err)
	}
	return resp
}

type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func decodeToolResult(t *testing.T, resp *protocol.Response) toolCallResult {
	t.Helper()
	var result toolCallResult
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected content %+v", result.Content)
	}
	return result
}

func TestHandler_Initialize(t *testing.T) {
	resp := call(t, NewHandler(newTestServer()), protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
	})

	var result struct {
		ProtocolVersion string         `json:"protocolVersion"`
		ServerInfo      ServerInfo     `json:"serverInfo"`
		Capabilities    map[string]any `json:"capabilities"`
		Instructions    string         `json:"instructions"`
	}
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ProtocolVersion != protocol.MCPVersion {
		t.Errorf("protocolVersion = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "test-server" || result.ServerInfo.Version != "1.0.0" {
		t.Errorf("serverInfo = %+v", result.ServerInfo)
	}
	if _, ok := result.Capabilities["tools"]; !ok {
		t.Error("expected tools capability")
	}
	if result.Instructions != "use greet" {
		t.Errorf("instructions = %q", result.Instructions)
	}
}

func TestHandler_Notifications(t *testing.T) {
	h := NewHandler(newTestServer())
	req := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, Method: protocol.MethodInitialized}
	resp, err := h.HandleRequest(context.Background(), req)
	if err != nil || resp != nil {
		t.Errorf("expected no response, got %v, %v", resp, err)
	}
}

func TestHandler_Ping(t *testing.T) {
	resp := call(t, NewHandler(newTestServer()), protocol.MethodPing, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error %v", resp.Error)
	}
}

func TestHandler_UnknownMethod(t *testing.T) {
	req, _ := protocol.NewRequest(1, "resources/list", nil)
	_, err := NewHandler(newTestServer()).HandleRequest(context.Background(), req)
	if !protocol.NewMethodNotFound("").Is(err) {
		t.Errorf("expected method not found, got %v", err)
	}
}

func TestHandler_ToolsList(t *testing.T) {
	resp := call(t, NewHandler(newTestServer()), protocol.MethodToolsList, nil)

	var result struct {
		Tools []struct {
			Name        string                  `json:"name"`
			Description string                  `json:"description"`
			InputSchema map[string]any          `json:"inputSchema"`
			Annotations *server.ToolAnnotations `json:"annotations"`
		} `json:"tools"`
	}
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	if strings.Join(names, ",") != "fail,greet,slow,sum" {
		t.Fatalf("tools = %v", names)
	}

	greet := result.Tools[1]
	if greet.InputSchema["type"] != "object" {
		t.Errorf("inputSchema = %v", greet.InputSchema)
	}
	if greet.Annotations == nil || greet.Annotations.ReadOnlyHint == nil || !*greet.Annotations.ReadOnlyHint {
		t.Errorf("expected read-only annotation, got %+v", greet.Annotations)
	}
	if result.Tools[3].Annotations != nil {
		t.Errorf("sum should have no annotations, got %+v", result.Tools[3].Annotations)
	}
}

func TestHandler_ToolsCall(t *testing.T) {
	h := NewHandler(newTestServer())

	t.Run("string result is verbatim", func(t *testing.T) {
		resp := call(t, h, protocol.MethodToolsCall, map[string]any{
			"name": "greet", "arguments": map[string]any{"name": "ana"},
		})
		result := decodeToolResult(t, resp)
		if result.IsError || result.Content[0].Text != "hello ana" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("structured result is JSON text", func(t *testing.T) {
		resp := call(t, h, protocol.MethodToolsCall, map[string]any{
			"name": "sum", "arguments": map[string]any{"a": 2, "b": 3},
		})
		result := decodeToolResult(t, resp)
		if result.Content[0].Text != `{"sum":5}` {
			t.Errorf("text = %q", result.Content[0].Text)
		}
	})

	t.Run("tool error becomes isError result", func(t *testing.T) {
		resp := call(t, h, protocol.MethodToolsCall, map[string]any{"name": "fail"})
		if resp.Error != nil {
			t.Fatalf("expected result, got error %v", resp.Error)
		}
		result := decodeToolResult(t, resp)
		if !result.IsError || result.Content[0].Text != "upstream refused" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("validation failure is invalid params", func(t *testing.T) {
		req, _ := protocol.NewRequest(1, protocol.MethodToolsCall, map[string]any{
			"name": "greet", "arguments": map[string]any{},
		})
		_, err := h.HandleRequest(context.Background(), req)
		if !protocol.NewInvalidParams("").Is(err) {
			t.Errorf("expected invalid params, got %v", err)
		}
	})

	t.Run("unknown tool is not found", func(t *testing.T) {
		req, _ := protocol.NewRequest(1, protocol.MethodToolsCall, map[string]any{"name": "nope"})
		_, err := h.HandleRequest(context.Background(), req)
		if !protocol.NewNotFound("").Is(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		req, _ := protocol.NewRequest(1, protocol.MethodToolsCall, map[string]any{})
		_, err := h.HandleRequest(context.Background(), req)
		if !protocol.NewInvalidParams("").Is(err) {
			t.Errorf("expected invalid params, got %v", err)
		}
	})
}

func TestHandler_Cancellation(t *testing.T) {
	h := NewHandler(newTestServer())

	done := make(chan *protocol.Response, 1)
	go func() {
		req, _ := protocol.NewRequest(42, protocol.MethodToolsCall, map[string]any{"name": "slow"})
		resp, _ := h.HandleRequest(context.Background(), req)
		done <- resp
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.cancels.Active() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  protocol.MethodCancelled,
		Params:  json.RawMessage(`{"requestId":42,"reason":"user aborted"}`),
	}
	if resp, err := h.HandleRequest(context.Background(), cancel); resp != nil || err != nil {
		t.Fatalf("cancel notification answered with %v, %v", resp, err)
	}

	select {
	case resp := <-done:
		result := decodeToolResult(t, resp)
		if !result.IsError || result.Content[0].Text != context.Canceled.Error() {
			t.Errorf("unexpected result %+v", result)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tool was not cancelled")
	}
}

func TestHandler_Middleware(t *testing.T) {
	var methods []string
	record := func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			methods = append(methods, req.Method)
			return next(ctx, req)
		}
	}

	h := NewHandler(newTestServer(), WithMiddleware(record), WithLogger(middleware.NopLogger{}))
	call(t, h, protocol.MethodPing, nil)
	call(t, h, protocol.MethodToolsList, nil)

	if strings.Join(methods, ",") != "ping,tools/list" {
		t.Errorf("middleware saw %v", methods)
	}
}

func TestServeOverStdio(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"greet","arguments":{"name":"bo"}}}`,
	}, "\n"))
	var out bytes.Buffer

	tr := transport.NewStdio(transport.WithStdin(in), transport.WithStdout(&out))
	if err := tr.Serve(context.Background(), NewHandler(newTestServer())); err != nil {
		t.Fatalf("serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 responses, got %d: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], `"test-server"`) {
		t.Errorf("initialize response = %s", lines[0])
	}
	if !strings.Contains(lines[1], `hello bo`) {
		t.Errorf("tools/call response = %s", lines[1])
	}
}
