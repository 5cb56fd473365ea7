package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	Path   string
	APIKey string
	Body   map[string]any
}

// gateway records requests and answers with status.
type gateway struct {
	mu       sync.Mutex
	requests []captured
	status   int
}

func newGateway(t *testing.T) (*gateway, *httptest.Server) {
	t.Helper()
	g := &gateway{status: http.StatusCreated}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		g.mu.Lock()
		g.requests = append(g.requests, captured{Path: r.URL.Path, APIKey: r.Header.Get("X-Api-Key"), Body: body})
		status := g.status
		g.mu.Unlock()

		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":"session not started"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"true_123@c.us_ABC"}`))
	}))
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *gateway) last(t *testing.T) captured {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.requests)
	return g.requests[len(g.requests)-1]
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://gw/"})
	require.NoError(t, err)
	assert.Equal(t, "http://gw", c.baseURL)
	assert.Equal(t, "default", c.session)
	assert.Nil(t, c.limiter)
	assert.Equal(t, defaultTimeout, c.http.Timeout)

	injected := &http.Client{}
	c, err = New(Config{BaseURL: "http://gw", Timeout: 5 * time.Second, HTTPClient: injected})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
	assert.Zero(t, injected.Timeout, "caller's client is not mutated")

	bounded := &http.Client{Timeout: time.Second}
	c, err = New(Config{BaseURL: "http://gw", Timeout: 5 * time.Second, HTTPClient: bounded})
	require.NoError(t, err)
	assert.Same(t, bounded, c.http)
}

func TestClient_SendText(t *testing.T) {
	g, srv := newGateway(t)
	c, err := New(Config{BaseURL: srv.URL, APIKey: "secret", Session: "bot"})
	require.NoError(t, err)

	require.NoError(t, c.SendText(context.Background(), "+55 11 99999-0000", "hello"))

	req := g.last(t)
	assert.Equal(t, "/api/sendText", req.Path)
	assert.Equal(t, "secret", req.APIKey)
	assert.Equal(t, map[string]any{"session": "bot", "chatId": "5511999990000@c.us", "text": "hello"}, req.Body)
}

func TestClient_SendAttachments(t *testing.T) {
	g, srv := newGateway(t)
	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()
	file := File{MimeType: "image/png", Filename: "a.png", Data: []byte("png!")}

	require.NoError(t, c.SendImage(ctx, "123@c.us", file, "look"))
	req := g.last(t)
	assert.Equal(t, "/api/sendImage", req.Path)
	assert.Empty(t, req.APIKey)
	assert.Equal(t, "look", req.Body["caption"])
	assert.Equal(t, map[string]any{"mimetype": "image/png", "filename": "a.png", "data": "cG5nIQ=="}, req.Body["file"])

	require.NoError(t, c.SendFile(ctx, "123", file, ""))
	req = g.last(t)
	assert.Equal(t, "/api/sendFile", req.Path)
	assert.NotContains(t, req.Body, "caption")

	require.NoError(t, c.SendVoice(ctx, "123", File{MimeType: "audio/ogg", Filename: "v.ogg"}))
	assert.Equal(t, "/api/sendVoice", g.last(t).Path)
}

func TestClient_APIError(t *testing.T) {
	g, srv := newGateway(t)
	g.status = http.StatusUnprocessableEntity
	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	err = c.SendText(context.Background(), "123", "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "session not started")
	assert.Contains(t, err.Error(), "422")
}

func TestClient_RateLimited(t *testing.T) {
	g, srv := newGateway(t)
	c, err := New(Config{BaseURL: srv.URL, RatePerSecond: 1})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.SendText(ctx, "123", "first"))
	err = c.SendText(ctx, "123", "second")
	assert.True(t, errors.Is(err, ErrRateLimited))

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Len(t, g.requests, 1, "rejected calls never reach the gateway")
}

func TestClient_InvalidRecipient(t *testing.T) {
	g, srv := newGateway(t)
	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	assert.Error(t, c.SendText(context.Background(), "not a number", "hi"))
	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.requests)
}

func TestChatID(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "5511999990000", want: "5511999990000@c.us"},
		{in: "+55 (11) 99999-0000", want: "5511999990000@c.us"},
		{in: "120363@g.us", want: "120363@g.us"},
		{in: " 123@c.us ", want: "123@c.us"},
		{in: "", wantErr: true},
		{in: "+", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ChatID(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestDetectMIME(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	assert.Equal(t, "application/pdf", DetectMIME("report.PDF", nil))
	assert.Equal(t, "image/png", DetectMIME("chart.png", nil))
	assert.Equal(t, "image/png", DetectMIME("no-extension", png))
	assert.Equal(t, "text/plain", DetectMIME("notes.unknownext", []byte("plain words")))
}
