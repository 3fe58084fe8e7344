package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiscover/pkg/models"
)

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://art.example.com/app", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://art.example.com/ws", u)

	u, err = websocketURL("http://localhost:8080", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	require.Error(t, saveToken(path, tokenData{Server: "s"}))

	require.NoError(t, saveToken(path, tokenData{Server: "http://x", Token: " abc "}))
	td, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, tokenData{Server: "http://x", Token: "abc"}, td)
}

func TestResolveToken_IssuesAndSaves(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/session", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"s1","token":"tok-1"}`))
	}))
	defer srv.Close()

	rf := remoteFlags{server: srv.URL, tokenPath: filepath.Join(t.TempDir(), "token.json")}
	tok, err := rf.resolveToken(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// second call reads the saved token
	tok, err = rf.resolveToken(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), calls.Load())

	rf.token = "explicit"
	tok, err = rf.resolveToken(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "explicit", tok)
}

func TestDoJSON_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"a discovery is already in progress"}`))
	}))
	defer srv.Close()

	err := doJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL+"/api/discover", "t", struct{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}

func TestPrintArtwork(t *testing.T) {
	var buf bytes.Buffer
	printArtwork(&buf, models.Artwork{Title: "Untitled", Artist: "Unknown artist", Century: "19th century", Culture: "French"})
	out := buf.String()
	assert.Contains(t, out, "Untitled\n")
	assert.Contains(t, out, "Century: 19th century")
	assert.Contains(t, out, "No image available")
}

func TestFormatEvent(t *testing.T) {
	msg := []byte(`{"type":"session.state","state":{"status":"success","version":4,` +
		`"artwork":{"title":"Sunflowers","artist":"Vincent van Gogh"},` +
		`"bans":[{"kind":"culture","value":"Dutch"}]}}`)

	assert.Equal(t, "[session.state] v4 success  Sunflowers / Vincent van Gogh  bans=1", formatEvent(msg, "summary"))
	assert.Equal(t, string(msg), formatEvent(msg, "raw"))
	assert.Contains(t, formatEvent(msg, "pretty"), "\n  \"state\": {")

	failed := []byte(`{"type":"welcome","state":{"status":"error","version":2,"error":"boom","bans":[]}}`)
	assert.Equal(t, "[welcome] v2 error  error: boom  bans=0", formatEvent(failed, "summary"))

	assert.Equal(t, "not json", formatEvent([]byte("not json"), "summary"))
}
