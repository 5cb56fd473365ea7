// Package e2e drives the assembled server through every transport.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thadeucbr/mcp-tools/app"
	"github.com/thadeucbr/mcp-tools/client"
	"github.com/thadeucbr/mcp-tools/config"
	"github.com/thadeucbr/mcp-tools/meal"
	"github.com/thadeucbr/mcp-tools/protocol"
	"github.com/thadeucbr/mcp-tools/transport"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Mongo.URI = "mongodb://unused"
	cfg.Mongo.Timezone = "UTC"

	a, err := app.New(context.Background(), cfg, nil, app.WithStore(meal.NewMemoryStore()))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func callMeal(t *testing.T, c *client.Client, args map[string]any) envelope {
	t.Helper()
	result, err := c.CallTool(context.Background(), meal.ToolName, args)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Text())
	}
	var env envelope
	if err := result.DecodeText(&env); err != nil {
		t.Fatalf("decode %q: %v", result.Text(), err)
	}
	return env
}

// runLedgerScenario logs two meals for u2, checks the daily total, then
// updates and deletes one of them.
func runLedgerScenario(t *testing.T, c *client.Client) {
	t.Helper()
	ctx := context.Background()

	info, err := c.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if info.Name != "mcp-tools" || info.ProtocolVersion != protocol.MCPVersion {
		t.Errorf("unexpected server info %+v", info)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	var ids []string
	for _, kcal := range []float64{300, 700} {
		env := callMeal(t, c, map[string]any{
			"operation": "create",
			"userId":    "u2",
			"mealData":  map[string]any{"mealType": "meal", "description": "plate", "calories": kcal},
		})
		if !env.Success {
			t.Fatalf("create failed: %s", env.Data)
		}
		var rec meal.Record
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}

	var summary meal.Summary
	env := callMeal(t, c, map[string]any{"operation": "daily_summary", "userId": "u2"})
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Totals.TotalCalories != 1000 || summary.Totals.MealCount != 2 {
		t.Errorf("unexpected totals %+v", summary.Totals)
	}

	env = callMeal(t, c, map[string]any{"operation": "update", "mealId": ids[0], "mealData": map[string]any{"calories": 500}})
	if !env.Success || string(env.Data) != `{"modifiedCount":1}` {
		t.Errorf("update: %+v %s", env, env.Data)
	}
	env = callMeal(t, c, map[string]any{"operation": "delete", "mealId": ids[1], "userId": "u2"})
	if !env.Success || string(env.Data) != `{"deletedCount":1}` {
		t.Errorf("delete: %+v %s", env, env.Data)
	}

	env = callMeal(t, c, map[string]any{"operation": "daily_summary", "userId": "u2"})
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Totals.TotalCalories != 500 || summary.Totals.MealCount != 1 {
		t.Errorf("unexpected totals after update/delete %+v", summary.Totals)
	}

	env = callMeal(t, c, map[string]any{"operation": "delete", "mealId": ids[1]})
	if env.Success {
		t.Error("deleting twice should fail inside the envelope")
	}
}

func TestStdio(t *testing.T) {
	a := newApp(t)
	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- transport.NewStdio(transport.WithStdin(serverIn), transport.WithStdout(serverOut)).Serve(ctx, a.Handler())
	}()

	c := client.New(client.NewPipeTransport(clientIn, clientOut))
	runLedgerScenario(t, c)

	_ = c.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("server did not stop on EOF")
	}
	_ = serverOut.Close()
}

func TestHTTP(t *testing.T) {
	a := newApp(t)
	srv := httptest.NewServer(transport.NewHTTP("").Handler(a.Handler()))
	defer srv.Close()

	runLedgerScenario(t, client.New(client.NewHTTPTransport(srv.URL+"/mcp")))
}

func TestHTTP_JSONRPC(t *testing.T) {
	a := newApp(t)
	srv := httptest.NewServer(transport.NewHTTP("").Handler(a.Handler()))
	defer srv.Close()

	post := func(body string) (*http.Response, *protocol.Response) {
		t.Helper()
		resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if len(bytes.TrimSpace(data)) == 0 {
			return resp, nil
		}
		var out protocol.Response
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}
		return resp, &out
	}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{not json`, protocol.CodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, protocol.CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, protocol.CodeMethodNotFound},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`, protocol.CodeNotFound},
		{"missing tool name", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`, protocol.CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := post(tt.body)
			if resp == nil || resp.Error == nil {
				t.Fatalf("expected error response, got %+v", resp)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %d, want %d", resp.Error.Code, tt.code)
			}
		})
	}

	t.Run("notification is accepted without a body", func(t *testing.T) {
		httpResp, resp := post(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
		if httpResp.StatusCode != http.StatusAccepted || resp != nil {
			t.Errorf("status %d, body %+v", httpResp.StatusCode, resp)
		}
	})

	t.Run("ledger failures are successful results", func(t *testing.T) {
		_, resp := post(`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"meal_register","arguments":{"operation":"fly"}}}`)
		if resp == nil || resp.Error != nil {
			t.Fatalf("expected result, got %+v", resp)
		}
		data, _ := json.Marshal(resp.Result)
		if !strings.Contains(string(data), `\"success\":false`) || strings.Contains(string(data), `"isError":true`) {
			t.Errorf("unexpected result %s", data)
		}
	})
}

func TestWebSocket(t *testing.T) {
	a := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(transport.NewWebSocket("").Handler(ctx, a.Handler()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(id int, method string, params any) *protocol.Response {
		t.Helper()
		req, err := protocol.NewRequest(int64(id), method, params)
		if err != nil {
			t.Fatal(err)
		}
		if err := conn.WriteJSON(req); err != nil {
			t.Fatal(err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var resp protocol.Response
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		return &resp
	}

	if resp := send(1, protocol.MethodInitialize, map[string]any{"protocolVersion": protocol.MCPVersion}); resp.Error != nil {
		t.Fatalf("initialize: %+v", resp.Error)
	}
	resp := send(2, protocol.MethodToolsList, nil)
	data, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(data), `"name":"meal_register"`) {
		t.Errorf("tools/list = %s", data)
	}

	resp = send(3, protocol.MethodToolsCall, map[string]any{
		"name":      meal.ToolName,
		"arguments": map[string]any{"operation": "read", "userId": "ws-user"},
	})
	data, _ = json.Marshal(resp.Result)
	if !strings.Contains(string(data), `{\"success\":true,\"data\":[]}`) {
		t.Errorf("tools/call = %s", data)
	}
}
