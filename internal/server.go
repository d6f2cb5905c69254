package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aluque/mma-planner/internal/advisor"
	"github.com/aluque/mma-planner/internal/auth"
	"github.com/aluque/mma-planner/internal/config"
	"github.com/aluque/mma-planner/internal/db"
	"github.com/aluque/mma-planner/internal/export"
	"github.com/aluque/mma-planner/internal/middleware"
	"github.com/aluque/mma-planner/internal/telemetry/metrics"
	"github.com/aluque/mma-planner/internal/telemetry/tracing"
	"github.com/aluque/mma-planner/internal/training"
	"github.com/aluque/mma-planner/pkg"
)

type Server struct {
	config      *config.Config
	versionInfo string

	sessionsRepo training.Repo
	dbPool       *pgxpool.Pool
	analyzer     *training.Analyzer

	redisClient    *redis.Client
	usersFile      *auth.UsersFile
	authService    *auth.Service
	loginChecker   *auth.LoginChecker
	advisorService *advisor.Service

	httpServer        *http.Server
	metricsHttpServer *http.Server

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPassword           string
	RedisPassword           string
	GeminiAPIKey            string
	OpenAIAPIKey            string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "mma-planner", rdb)
	if err != nil {
		return nil, err
	}

	var sessionsRepo training.Repo
	var dbPool *pgxpool.Pool
	switch params.Config.StoreBackend {
	case config.StoreBackendPostgres:
		dbPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:            params.Config.PostgresHost,
			DBPort:            params.Config.PostgresPort,
			DBName:            params.Config.PostgresDBName,
			DBUser:            params.Config.PostgresUser,
			TracingEnabled:    params.HoneycombTracingEnabled,
			MetricsRegisterer: promRegistry,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		sessionsRepo = training.NewPostgresRepo(dbPool)
	default:
		sessionsRepo, err = training.NewFileRepo(params.Config.SessionsFilePath)
		if err != nil {
			return nil, fmt.Errorf("new sessions file repo: %w", err)
		}
	}

	usersFile, err := auth.NewUsersFile(params.Config.UsersFilePath)
	if err != nil {
		return nil, fmt.Errorf("new users file: %w", err)
	}
	if params.AdminUsername != "" && params.AdminPassword != "" {
		if err := usersFile.Seed(params.AdminUsername, params.AdminPassword); err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
	}

	authService := auth.NewService(usersFile, auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &Server{
		config:       params.Config,
		versionInfo:  params.VersionInfo,
		sessionsRepo: sessionsRepo,
		dbPool:       dbPool,
		analyzer:     training.NewAnalyzer(),

		redisClient:    rdb,
		usersFile:      usersFile,
		authService:    authService,
		loginChecker:   auth.NewLoginChecker(rdb),
		advisorService: advisor.NewService(params.GeminiAPIKey, params.OpenAIAPIKey, tracedHttpClient),

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	sessionsHandler := training.NewHandler(s.sessionsRepo, s.metricsManager)
	sessionsHandler.SetupRoutes(r)

	statsHandler := training.NewStatsHandler(s.sessionsRepo, s.analyzer)
	statsHandler.SetupRoutes(r)

	exportHandler := export.NewHandler(
		s.sessionsRepo,
		export.NewRenderer(s.analyzer),
		s.metricsManager,
	)
	exportHandler.SetupRoutes(r)

	advisorHandler := advisor.NewHandler(s.sessionsRepo, s.advisorService, s.metricsManager)
	advisorHandler.SetupRoutes(r)

	// rate limit the auth endpoints to prevent abuse
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.Use(middleware.RateLimit(
		reqRateLimiter, "auth",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))
	authHandler := auth.NewHandler(s.authService)
	authHandler.SetupRoutes(authRouter)

	r.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET", "OPTIONS").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
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

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

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
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
