package internal

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

	"github.com/2beens/pushupjourney/internal/config"
	"github.com/2beens/pushupjourney/internal/middleware"
	"github.com/2beens/pushupjourney/internal/progress"
	"github.com/2beens/pushupjourney/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testAdminSecret = "reset-me"

func newTestServer(t *testing.T, now time.Time) *Server {
	t.Helper()

	secretHash, err := pkg.HashPassword(testAdminSecret)
	require.NoError(t, err)

	server, err := NewServer(context.Background(), NewServerParams{
		Config: &config.Config{
			StoreBackend:                      config.StoreBackendMemory,
			MemoryStoreSizeMB:                 1,
			ReminderCheckInterval:             time.Minute,
			DestructiveRateLimitAllowedPerMin: 5,
		},
		AdminSecretHash: secretHash,
		Now: func() time.Time {
			return now
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, server.store.Close())
	})
	return server
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("User-Agent", "test-agent")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestServer_Routes(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	server := newTestServer(t, now)
	router := server.routerSetup()

	rr := doRequest(t, router, "GET", "/progress", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var state progress.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, 1, state.Progress.CurrentDay)
	require.Len(t, state.Progress.Days, 1)
	assert.Equal(t, "2024-03-10", state.Progress.Days[0].Date)

	rr = doRequest(t, router, "POST", "/progress/count", []byte(`{"count": 3}`), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, 3, state.Selected.Actual)

	rr = doRequest(t, router, "GET", "/notifications/settings", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"notificationTimes":["18:00","21:00"]`)

	rr = doRequest(t, router, "GET", "/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_DestructiveRoutesNeedSecret(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	server := newTestServer(t, now)
	router := server.routerSetup()

	rr := doRequest(t, router, "POST", "/progress/count", []byte(`{"count": 5}`), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "POST", "/progress/reset", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, "POST", "/progress/reset", nil, map[string]string{
		middleware.AdminSecretHeader: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, "POST", "/progress/import", []byte(`{"currentDay":1}`), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, "POST", "/progress/reset", nil, map[string]string{
		middleware.AdminSecretHeader: testAdminSecret,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var state progress.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, 0, state.Selected.Actual)
}

func TestServer_CorsRejectsUnknownOrigin(t *testing.T) {
	server := newTestServer(t, time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))
	router := server.routerSetup()

	req := httptest.NewRequest("GET", "/progress", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestServer_MetricsRouter(t *testing.T) {
	server := newTestServer(t, time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))
	router := server.routerSetup()

	rr := doRequest(t, router, "POST", "/progress/completed/toggle", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, router, "POST", "/progress/advance", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, server.metricsRouterSetup(), "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `pushups_main_intents{changed="true",kind="advance_day"} 1`), body)
	assert.Contains(t, body, `pushups_main_current_day 2`)
	assert.Contains(t, body, `route="progress-advance"`)
}

func TestServer_ReminderLifecycle(t *testing.T) {
	server := newTestServer(t, time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))

	server.startReminder(context.Background())
	server.stopReminder()
	// stopping twice is fine
	server.stopReminder()
}
