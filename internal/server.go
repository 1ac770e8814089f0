package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/pushupjourney/internal/config"
	"github.com/2beens/pushupjourney/internal/middleware"
	"github.com/2beens/pushupjourney/internal/notify"
	"github.com/2beens/pushupjourney/internal/progress"
	progressmcp "github.com/2beens/pushupjourney/internal/progress/mcp"
	"github.com/2beens/pushupjourney/internal/store"
	"github.com/2beens/pushupjourney/internal/telemetry/metrics"
	"github.com/2beens/pushupjourney/internal/telemetry/tracing"
)

// import payloads are a few KB; leave room for years of history
const maxRequestBodyBytes = 5 << 20

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	adminSecretHash   string

	config          *config.Config
	store           store.Store
	progressService *progress.Service
	settingsStore   *notify.SettingsStore
	reminder        *notify.Reminder
	rateLimiter     middleware.RequestRateLimiter

	reminderCancel context.CancelFunc
	reminderWg     sync.WaitGroup

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	AdminSecretHash         string
	RedisPassword           string
	HoneycombTracingEnabled bool
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("pushups", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	storeParams := store.ParamsFromConfig(params.Config, params.RedisPassword)
	storeParams.TracingEnabled = params.HoneycombTracingEnabled
	storeParams.MetricsRegisterer = promRegistry
	progressStore, err := store.New(ctx, storeParams)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}

	var rdb *redis.Client
	var rateLimiter middleware.RequestRateLimiter
	if redisStore, ok := progressStore.(*store.RedisStore); ok {
		rdb = redisStore.Client()
		rateLimiter = redis_rate.NewLimiter(rdb)
	} else {
		log.Debugf("store backend [%s] has no redis, destructive routes are not rate limited", params.Config.StoreBackend)
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "pushups-service", rdb)
	if err != nil {
		_ = progressStore.Close()
		return nil, err
	}

	now := params.Now
	if now == nil {
		loc, err := params.Config.Location()
		if err != nil {
			_ = progressStore.Close()
			return nil, err
		}
		now = func() time.Time {
			return time.Now().In(loc)
		}
	}

	dispatcher, err := notify.NewDispatcher(params.Config.NotificationWebhookURL)
	if err != nil {
		_ = progressStore.Close()
		return nil, fmt.Errorf("new notification dispatcher: %w", err)
	}

	settingsStore := notify.NewSettingsStore(progressStore)
	progressService := progress.NewService(progress.ServiceParams{
		Store:      progressStore,
		Dispatcher: dispatcher,
		Settings:   settingsStore,
		Schedule:   progress.DefaultSchedule(),
		Now:        now,
		Metrics:    metricsManager,
	})

	state := progressService.Load(ctx)
	log.Infof("progress loaded: day %d, streak %d, level %s",
		state.Progress.CurrentDay, state.Progress.Streak, state.LevelName)

	reminder := notify.NewReminder(notify.ReminderParams{
		Settings:    settingsStore,
		Dispatcher:  dispatcher,
		Interval:    params.Config.ReminderCheckInterval,
		Now:         now,
		WorkoutDone: progressService.WorkoutDoneToday,
		OnSent: func(n notify.Notification, err error) {
			status := "sent"
			if err != nil {
				status = "failed"
			}
			metricsManager.CounterNotifications.WithLabelValues(string(n.Kind), status).Inc()
		},
	})

	return &Server{
		config:          params.Config,
		adminSecretHash: params.AdminSecretHash,
		store:           progressStore,
		progressService: progressService,
		settingsStore:   settingsStore,
		reminder:        reminder,
		rateLimiter:     rateLimiter,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("pushups-router"))

	progressHandler := progress.NewHandler(s.progressService)
	progressHandler.SetupRoutes(r)

	adminRouter := r.NewRoute().Subrouter()
	if s.rateLimiter != nil {
		adminRouter.Use(middleware.RateLimit(
			s.rateLimiter,
			s.metricsManager,
			"destructive",
			s.config.DestructiveRateLimitAllowedPerMin,
		))
	}
	progressHandler.SetupAdminRoutes(adminRouter)

	notifyHandler := notify.NewHandler(s.settingsStore)
	notifyHandler.SetupRoutes(r)

	mcpHandler := progressmcp.NewHTTPHandler(progressmcp.NewServer(s.progressService))
	r.PathPrefix("/mcp").Handler(mcpHandler).Name("mcp")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(
		s.adminSecretHash,
		"/progress/import",
		"/progress/reset",
	)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest(maxRequestBodyBytes))

	return r
}

func (s *Server) metricsRouterSetup() *mux.Router {
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	return metricsRouter
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: s.metricsRouterSetup(),
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.startReminder(ctx)
	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) startReminder(ctx context.Context) {
	reminderCtx, cancel := context.WithCancel(ctx)
	s.reminderCancel = cancel
	s.reminderWg.Add(1)
	go func() {
		defer s.reminderWg.Done()
		s.reminder.Run(reminderCtx)
	}()
}

func (s *Server) stopReminder() {
	if s.reminderCancel == nil {
		return
	}
	s.reminderCancel()
	s.reminderWg.Wait()
	log.Debugln("reminder loop stopped")
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)
	s.stopReminder()

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	// in-flight requests are done, so the store can go
	if err := s.store.Close(); err != nil {
		log.Errorf("failed to close store: %s", err)
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
