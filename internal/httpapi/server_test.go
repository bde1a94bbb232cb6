package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*httptest.Server, *testutil.FakeRemote) {
	t.Helper()
	remote := testutil.NewFakeRemote(fact.DefaultSeeds()...)
	srv := NewServer(remote, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, remote
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestServer_Healthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_List(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+factsPath+"?category=eq.society&order=votesInteresting.desc&limit=600", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var facts []fact.Fact
	require.NoError(t, json.Unmarshal(body, &facts))
	require.Len(t, facts, 2)
	assert.Equal(t, "2", facts[0].ID)
	assert.Equal(t, "3", facts[1].ID)
}

func TestServer_ListEmptyIsArray(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doRequest(t, http.MethodGet, ts.URL+factsPath+"?category=eq.history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body))
}

func TestServer_ListBadParams(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doRequest(t, http.MethodGet, ts.URL+factsPath+"?limit=lots", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"err"`)
}

func TestServer_Create(t *testing.T) {
	ts, remote := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, ts.URL+factsPath,
		`{"text":"Test","source":"https://example.com","category":"technology"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rows []fact.Fact
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "new-1", rows[0].ID)
	assert.Equal(t, "technology", rows[0].Category)
	assert.Len(t, remote.Facts(), 4)
}

func TestServer_CreateRequiresText(t *testing.T) {
	ts, remote := newTestServer(t)
	resp, _ := doRequest(t, http.MethodPost, ts.URL+factsPath, `{"source":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, remote.Calls(testutil.OpInsert))
}

func TestServer_Patch(t *testing.T) {
	ts, remote := newTestServer(t)

	resp, body := doRequest(t, http.MethodPatch, ts.URL+factsPath+"?id=eq.1", `{"votesInteresting":25}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []fact.Fact
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(25), rows[0].VotesInteresting)

	stored, _ := remote.Get("1")
	assert.Equal(t, int64(25), stored.VotesInteresting)
}

func TestServer_PatchErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
	}{
		{"no filter", "", `{"votesFalse":1}`, http.StatusBadRequest},
		{"text column", "?id=eq.1", `{"text":1}`, http.StatusBadRequest},
		{"empty body", "?id=eq.1", `{}`, http.StatusBadRequest},
		{"not json numbers", "?id=eq.1", `{"votesFalse":"x"}`, http.StatusBadRequest},
		{"missing row", "?id=eq.999", `{"votesFalse":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doRequest(t, http.MethodPatch, ts.URL+factsPath+tt.query, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	remote := testutil.NewFakeRemote()
	srv := NewServer(remote, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	assert.NoError(t, <-done)
}
