// Package testutil drives a tool server in-process from tests.
package testutil

import (
	"context"
	"testing"

	mcptools "github.com/thadeucbr/mcp-tools"
	"github.com/thadeucbr/mcp-tools/client"
)

// TestClient is an initialized client bound to an in-process server. Its
// helpers fail the test on transport or protocol errors.
type TestClient struct {
	t      testing.TB
	client *client.Client
	ctx    context.Context
}

// NewTestClient initializes a client against srv.
func NewTestClient(t testing.TB, srv *mcptools.Server, opts ...mcptools.ServeOption) *TestClient {
	t.Helper()

	c := client.New(client.NewInProcessTransport(mcptools.NewHandler(srv, opts...)))
	tc := &TestClient{t: t, client: c, ctx: context.Background()}
	if _, err := c.Initialize(tc.ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return tc
}

// Client exposes the underlying client for calls that expect errors.
func (tc *TestClient) Client() *client.Client {
	return tc.client
}

// Tools lists the server's tools.
func (tc *TestClient) Tools() []client.Tool {
	tc.t.Helper()
	tools, err := tc.client.ListTools(tc.ctx)
	if err != nil {
		tc.t.Fatalf("list tools: %v", err)
	}
	return tools
}

// Tool returns the named tool, failing the test if it is not registered.
func (tc *TestClient) Tool(name string) client.Tool {
	tc.t.Helper()
	for _, tool := range tc.Tools() {
		if tool.Name == name {
			return tool
		}
	}
	tc.t.Fatalf("tool %q not registered", name)
	return client.Tool{}
}

// AssertToolExists fails the test unless name is registered.
func (tc *TestClient) AssertToolExists(name string) {
	tc.t.Helper()
	tc.Tool(name)
}

// AssertToolMissing fails the test if name is registered.
func (tc *TestClient) AssertToolMissing(name string) {
	tc.t.Helper()
	for _, tool := range tc.Tools() {
		if tool.Name == name {
			tc.t.Fatalf("tool %q should not be registered", name)
		}
	}
}

// CallTool calls name and returns the raw result.
func (tc *TestClient) CallTool(name string, args any) *client.ToolResult {
	tc.t.Helper()
	result, err := tc.client.CallTool(tc.ctx, name, args)
	if err != nil {
		tc.t.Fatalf("call %s: %v", name, err)
	}
	return result
}

// CallToolJSON calls name, requires a successful result and decodes its
// text content into v.
func (tc *TestClient) CallToolJSON(name string, args any, v any) {
	tc.t.Helper()
	result := tc.CallTool(name, args)
	if result.IsError {
		tc.t.Fatalf("call %s: tool error: %s", name, result.Text())
	}
	if err := result.DecodeText(v); err != nil {
		tc.t.Fatalf("call %s: decode %q: %v", name, result.Text(), err)
	}
}

// CallToolError calls name and requires a tool-level failure, returning
// its message.
func (tc *TestClient) CallToolError(name string, args any) string {
	tc.t.Helper()
	result := tc.CallTool(name, args)
	if !result.IsError {
		tc.t.Fatalf("call %s: expected tool error, got %s", name, result.Text())
	}
	return result.Text()
}
