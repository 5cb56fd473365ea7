package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcptools "github.com/thadeucbr/mcp-tools"
	"github.com/thadeucbr/mcp-tools/client"
	"github.com/thadeucbr/mcp-tools/protocol"
	"github.com/thadeucbr/mcp-tools/transport"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"required"`
}

func newServer() *mcptools.Server {
	srv := mcptools.NewServer(mcptools.ServerInfo{Name: "echo-server", Version: "0.1.0"})
	srv.Tool("echo").
		Description("Echoes text").
		ReadOnly().
		Handler(func(in echoInput) (map[string]string, error) {
			return map[string]string{"echo": in.Text}, nil
		})
	srv.Tool("broken").
		Description("Fails").
		Handler(func(struct{}) (string, error) {
			return "", errors.New("broken tool")
		})
	return srv
}

func exercise(t *testing.T, c *client.Client) {
	t.Helper()
	ctx := context.Background()

	info, err := c.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if info.Name != "echo-server" || info.ProtocolVersion != protocol.MCPVersion {
		t.Errorf("server info = %+v", info)
	}
	if c.ServerInfo() != info {
		t.Error("expected cached server info")
	}

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	tools, err := c.ListTools(ctx)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 2 || tools[1].Name != "echo" {
		t.Fatalf("tools = %+v", tools)
	}
	if tools[1].Annotations["readOnlyHint"] != true {
		t.Errorf("annotations = %v", tools[1].Annotations)
	}

	result, err := c.CallTool(ctx, "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var out map[string]string
	if err := result.DecodeText(&out); err != nil {
		t.Fatalf("decode text %q: %v", result.Text(), err)
	}
	if out["echo"] != "hi" {
		t.Errorf("echo = %v", out)
	}

	result, err = c.CallTool(ctx, "broken", nil)
	if err != nil {
		t.Fatalf("call broken: %v", err)
	}
	if !result.IsError || result.Text() != "broken tool" {
		t.Errorf("broken result = %+v", result)
	}

	_, err = c.CallTool(ctx, "missing", nil)
	var rpcErr *protocol.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != protocol.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestClient_InProcess(t *testing.T) {
	c := client.New(client.NewInProcessTransport(mcptools.NewHandler(newServer())))
	defer c.Close()
	exercise(t, c)
}

func TestClient_HTTP(t *testing.T) {
	h := transport.NewHTTP(":0").Handler(mcptools.NewHandler(newServer()))
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := client.New(client.NewHTTPTransport(srv.URL+"/mcp"), client.WithClientInfo("test", "0"))
	defer c.Close()
	exercise(t, c)
}

func TestClient_HTTPEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keepalive\n\n")
		_, _ = io.WriteString(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":99,\"result\":{}}\n\n")
		_, _ = io.WriteString(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\n")
		_, _ = io.WriteString(w, "data: \"id\":1,\"result\":{\"tools\":[{\"name\":\"sse\"}]}}\n\n")
	}))
	defer srv.Close()

	c := client.New(client.NewHTTPTransport(srv.URL))
	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "sse" {
		t.Errorf("tools = %+v", tools)
	}
}

func TestClient_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{}}`)
	}))
	defer srv.Close()

	err := client.New(client.NewHTTPTransport(srv.URL)).Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), "http 403") {
		t.Errorf("expected 403, got %v", err)
	}

	err = client.New(client.NewHTTPTransport(srv.URL, client.WithHeader("X-Api-Key", "secret"))).Ping(context.Background())
	if err != nil {
		t.Errorf("ping with key: %v", err)
	}
}

func TestClient_Pipe(t *testing.T) {
	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdio := transport.NewStdio(transport.WithStdin(serverIn), transport.WithStdout(serverOut))
	done := make(chan error, 1)
	go func() {
		done <- stdio.Serve(ctx, mcptools.NewHandler(newServer()))
		serverOut.Close()
	}()

	c := client.New(client.NewPipeTransport(clientIn, clientOut))
	exercise(t, c)

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("server returned %v", err)
	}
}
