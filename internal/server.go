package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/musclelog/backend/internal/auth"
	"github.com/musclelog/backend/internal/config"
	"github.com/musclelog/backend/internal/db"
	"github.com/musclelog/backend/internal/exercises"
	"github.com/musclelog/backend/internal/middleware"
	"github.com/musclelog/backend/internal/records"
	"github.com/musclelog/backend/internal/telemetry/metrics"
	"github.com/musclelog/backend/internal/telemetry/tracing"
	"github.com/musclelog/backend/internal/users"
	"github.com/musclelog/backend/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config       *config.Config
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	tokenService *auth.TokenService

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	SecretKey               string
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
	VersionInfo             string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbParams := db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.Config.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	}

	dbPool, err := db.NewDBPool(ctx, dbParams)
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if err := db.Migrate(dbParams); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("musclelog", "main", promRegistry)
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
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "musclelog-backend")
	if err != nil {
		return nil, err
	}

	return &Server{
		config:       params.Config,
		dbPool:       dbPool,
		redisClient:  rdb,
		tokenService: auth.NewTokenService(params.SecretKey, auth.DefaultTTL),
		versionInfo:  params.VersionInfo,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	usersHandler := users.NewHandler(
		users.NewRepo(s.dbPool),
		s.tokenService,
		s.metricsManager,
	)

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	accessRouter := r.PathPrefix("/api").Subrouter()
	accessRouter.Use(middleware.RateLimit(
		reqRateLimiter,
		"access",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))
	accessRouter.HandleFunc("/register", usersHandler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	accessRouter.HandleFunc("/login", usersHandler.HandleLogin).Methods("POST", "OPTIONS").Name("login")

	recordsRepo := records.NewRepo(s.dbPool)
	recordsHandler := records.NewHandler(recordsRepo, s.metricsManager)
	exercisesHandler := exercises.NewHandler(exercises.NewRepo(s.dbPool))
	r.HandleFunc("/api/measure", s.handleAuthEcho).Methods("GET", "OPTIONS").Name("measure-root")
	r.HandleFunc("/api/measure", recordsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-record")
	r.HandleFunc("/api/measure/daily-muscle-summary", recordsHandler.HandleDailySummary).Methods("GET", "OPTIONS").Name("daily-summary")
	r.HandleFunc("/api/measure/exercises", exercisesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/api/measure/exercises/{category}", exercisesHandler.HandleListByCategory).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/api/measure/{exercise_id}", exercisesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")

	historyHandler := records.NewHistoryHandler(
		recordsRepo,
		records.NewAnalyzer(recordsRepo),
	)
	r.HandleFunc("/api/history", s.handleAuthEcho).Methods("GET", "OPTIONS").Name("history-root")
	r.HandleFunc("/api/history/dates", historyHandler.HandleDates).Methods("GET", "OPTIONS").Name("history-dates")
	r.HandleFunc("/api/history/daily", historyHandler.HandleDaily).Methods("GET", "OPTIONS").Name("history-daily")
	r.HandleFunc("/api/history/totals", historyHandler.HandleTotals).Methods("GET", "OPTIONS").Name("history-totals")
	r.HandleFunc("/api/history/weekly", historyHandler.HandleWeekly).Methods("GET", "OPTIONS").Name("history-weekly")

	r.HandleFunc("/api/setting/stats", usersHandler.HandleStats).Methods("GET", "OPTIONS").Name("user-stats")
	r.HandleFunc("/api/setting/account/password", usersHandler.HandleChangePassword).Methods("PUT", "OPTIONS").Name("change-password")
	r.HandleFunc("/api/setting/account", usersHandler.HandleDeleteAccount).Methods("DELETE", "OPTIONS").Name("delete-account")
	// the settings page fetches the history reads through /setting as well
	r.HandleFunc("/api/setting/dates", historyHandler.HandleDates).Methods("GET", "OPTIONS").Name("setting-dates")
	r.HandleFunc("/api/setting/daily", historyHandler.HandleDaily).Methods("GET", "OPTIONS").Name("setting-daily")
	r.HandleFunc("/api/setting/records/{record_id}", recordsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-record")
	r.HandleFunc("/api/setting/records/{record_id}", recordsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-record")

	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.tokenService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// handleAuthEcho answers the client's "am I still logged in" probe on the
// measure and history roots. The auth middleware did the actual check.
func (s *Server) handleAuthEcho(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	respJson, err := json.Marshal(struct {
		Message string `json:"message"`
		User    string `json:"user"`
	}{
		Message: "authenticated",
		User:    userID,
	})
	if err != nil {
		log.Errorf("failed to marshal auth echo response: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (s *Server) Serve(host string, port int) {
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

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
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
