package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strogmv/unread/internal/adapter/cache/memory"
	"github.com/strogmv/unread/internal/pkg/scheduler"
	"github.com/strogmv/unread/internal/port"
	"github.com/strogmv/unread/internal/service"
)

type noTransport struct{}

func (noTransport) Dial(context.Context, string, port.TransportMode) (port.PushConn, error) {
	return nil, errors.New("no transport in tests")
}

func newTestServer(t *testing.T, pullBody string) (*httptest.Server, *service.Engine) {
	t.Helper()

	request := func(context.Context, string, map[string]string) ([]byte, error) {
		return []byte(pullBody), nil
	}
	engine := service.NewEngine(
		service.EngineOptions{UserID: "u1", RecomputeInterval: 30 * time.Second},
		noTransport{},
		request,
		memory.NewStore(5*time.Minute),
		nil,
		scheduler.New(),
		service.SessionOptions{BaseDelay: time.Second, MaxDelay: 8 * time.Second, MaxAttempts: 1},
		service.PullOptions{Path: "/api/v1/notifications", Cooldown: time.Second, BreakerThreshold: 3, BreakerCooldown: time.Minute, BreakerProbes: 1},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	engine.Refresh(context.Background(), true)

	srv := httptest.NewServer(NewServer(engine).Handler())
	t.Cleanup(srv.Close)
	return srv, engine
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUnreadEndpointServesView(t *testing.T) {
	srv, _ := newTestServer(t, `[
		{"id":"n1","type":"info","recipientId":"u1","title":"Invoice ready","timestamp":"2026-03-01T12:00:00Z"},
		{"id":"m1","type":"chat.message","chatId":"c1","recipientId":"u1","senderName":"Alice","message":"hi","timestamp":"2026-03-01T12:00:01Z"}
	]`)

	out := getJSON(t, srv.URL+"/api/v1/unread")
	require.EqualValues(t, 1, out["generalUnreadCount"])
	require.EqualValues(t, 1, out["chatUnreadCount"])
}

func TestMarkGeneralReadEndpoint(t *testing.T) {
	srv, engine := newTestServer(t, `[
		{"id":"n1","type":"info","recipientId":"u1","title":"Invoice ready"}
	]`)

	resp, err := http.Post(srv.URL+"/api/v1/unread/general/n1/read", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, engine.View().GeneralUnreadCount)

	resp, err = http.Post(srv.URL+"/api/v1/unread/general/unknown/read", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkChatReadEndpoint(t *testing.T) {
	srv, engine := newTestServer(t, `[
		{"id":"m1","type":"chat.message","chatId":"c1","recipientId":"u1","senderName":"Alice","message":"hi"}
	]`)
	require.Equal(t, 1, engine.View().ChatUnreadCount)

	resp, err := http.Post(srv.URL+"/api/v1/unread/chats/c1/read", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, engine.View().ChatUnreadCount)
}

func TestHealthReportsSessionState(t *testing.T) {
	srv, _ := newTestServer(t, `[]`)

	out := getJSON(t, srv.URL+"/healthz")
	require.Equal(t, "ok", out["status"])
	require.Equal(t, "disconnected", out["session"])
}
