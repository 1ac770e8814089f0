//go:build integration_test || all_tests

package integration_testing

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/2beens/pushupjourney/internal"
	"github.com/2beens/pushupjourney/internal/config"
	"github.com/2beens/pushupjourney/internal/middleware"
	"github.com/2beens/pushupjourney/internal/progress"
	"github.com/2beens/pushupjourney/internal/store"
	"github.com/2beens/pushupjourney/pkg"
	testingpkg "github.com/2beens/pushupjourney/pkg/testing"

	"github.com/stretchr/testify/suite"
)

type IntegrationTestSuite struct {
	suite.Suite

	containers *containers
	server     *internal.Server
	cancel     context.CancelFunc
	httpClient *http.Client
}

func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	var err error
	s.containers, err = startContainers()
	if err != nil {
		log.Fatalf("start containers: %s", err)
	}

	secretHash, err := pkg.HashPassword(adminSecret)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	cfg := &config.Config{
		Host:                              serverHost,
		Port:                              serverPort,
		PrometheusMetricsHost:             serverHost,
		PrometheusMetricsPort:             "9001",
		StoreBackend:                      config.StoreBackendRedis,
		RedisHost:                         "localhost",
		RedisPort:                         s.containers.redisPort,
		ReminderCheckInterval:             time.Minute,
		DestructiveRateLimitAllowedPerMin: rateLimitPerM,
	}
	s.server, err = internal.NewServer(ctx, internal.NewServerParams{
		Config:          cfg,
		AdminSecretHash: secretHash,
		Now: func() time.Time {
			return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
		},
	})
	s.Require().NoError(err)
	s.server.Serve(ctx, cfg.Host, cfg.Port)

	s.httpClient = &http.Client{Timeout: 10 * time.Second}
	s.Require().Eventually(func() bool {
		resp, err := s.do("GET", "/progress", "", nil)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.GracefulShutdown()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.containers != nil {
		s.containers.cleanup()
	}
}

func (s *IntegrationTestSuite) do(method, path, body string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(method, serverEndpoint+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "test-agent")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.httpClient.Do(req)
}

func (s *IntegrationTestSuite) readState(resp *http.Response) progress.State {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))

	var state progress.State
	s.Require().NoError(json.Unmarshal(body, &state))
	return state
}

func (s *IntegrationTestSuite) TestProgressPersistedInRedis() {
	resp, err := s.do("POST", "/progress/count", `{"count": 6}`, nil)
	s.Require().NoError(err)
	state := s.readState(resp)
	s.Equal(6, state.Selected.Actual)
	s.True(state.Selected.Completed)

	ctx, rdb := testingpkg.GetRedisClientAndCtx(s.T(), s.containers.redisPort)
	defer rdb.Close()

	raw, err := rdb.Get(ctx, "pushups||"+progress.ProgressKey).Bytes()
	s.Require().NoError(err)

	var stored progress.UserProgress
	s.Require().NoError(json.Unmarshal(raw, &stored))
	s.Equal(6, stored.Days[0].Actual)
}

func (s *IntegrationTestSuite) TestResetRequiresSecretAndIsRateLimited() {
	resp, err := s.do("POST", "/progress/reset", "", nil)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	secretHeader := map[string]string{middleware.AdminSecretHeader: adminSecret}
	for i := 0; i < rateLimitPerM; i++ {
		resp, err := s.do("POST", "/progress/reset", "", secretHeader)
		s.Require().NoError(err)
		state := s.readState(resp)
		s.Equal(1, state.Progress.CurrentDay)
	}

	resp, err = s.do("POST", "/progress/reset", "", secretHeader)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestPostgresStore() {
	ctx := context.Background()
	pgStore, err := store.New(ctx, store.Params{
		Backend:        config.StoreBackendPostgres,
		PostgresHost:   "localhost",
		PostgresPort:   s.containers.postgresPort,
		PostgresDBName: testDBName,
	})
	s.Require().NoError(err)
	defer pgStore.Close()

	_, err = pgStore.Get(ctx, progress.ProgressKey)
	s.ErrorIs(err, store.ErrNotFound)

	s.Require().NoError(pgStore.Set(ctx, progress.ProgressKey, []byte(`{"currentDay":1}`)))
	s.Require().NoError(pgStore.Set(ctx, progress.ProgressKey, []byte(`{"currentDay":2}`)))

	value, err := pgStore.Get(ctx, progress.ProgressKey)
	s.Require().NoError(err)
	s.JSONEq(`{"currentDay":2}`, string(value))

	s.Require().NoError(pgStore.Delete(ctx, progress.ProgressKey, "missing-key"))
	_, err = pgStore.Get(ctx, progress.ProgressKey)
	s.ErrorIs(err, store.ErrNotFound)
}
