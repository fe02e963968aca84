package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/mark3labs/mcp-go/mcp"
)

// capturedRequest is what the fake upstream saw.
type capturedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
}

// fakeItemit is an httptest stand-in for the Itemit API that answers every
// request with one status and body.
type fakeItemit struct {
	*httptest.Server

	mu   sync.Mutex
	reqs []capturedRequest
}

func newFakeItemit(t *testing.T, status int, body string) *fakeItemit {
	t.Helper()
	f := &fakeItemit{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.reqs = append(f.reqs, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(b),
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeItemit) requests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.reqs...)
}

// unreachableURL returns the address of a server that has already shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func testLogger() *bolt.Logger {
	return newLogger("error", "json", io.Discard)
}

func testConfig(base string) Config {
	return Config{
		APIBase:     base,
		APIKey:      "key-1",
		UserID:      "user-1",
		UserToken:   "token-1",
		WorkspaceID: "ws-1",
	}
}

func newTestMCP(base string, newID func() string) *ItemitMCP {
	return NewItemitMCP(NewClient(testConfig(base), nil, testLogger()), newID)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil {
		t.Fatal("nil result")
	}
	var b strings.Builder
	for _, c := range res.Content {
		text, ok := c.(mcp.TextContent)
		if !ok {
			t.Fatalf("unexpected content type %T", c)
		}
		b.WriteString(text.Text)
	}
	return b.String()
}
