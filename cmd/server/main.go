package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aditya/go-boleia/internal/cache"
	"github.com/aditya/go-boleia/internal/config"
	"github.com/aditya/go-boleia/internal/database"
	"github.com/aditya/go-boleia/internal/events"
	"github.com/aditya/go-boleia/internal/handler"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/internal/matching"
	"github.com/aditya/go-boleia/internal/middleware"
	"github.com/aditya/go-boleia/internal/region"
	"github.com/aditya/go-boleia/internal/repository"
	"github.com/aditya/go-boleia/internal/service"
	"github.com/aditya/go-boleia/pkg/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("failed to load config", zap.Error(err))
	}

	if _, err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		zap.Must(zap.NewProduction()).Fatal("failed to init logger", zap.Error(err))
	}
	defer logger.Sync()

	// Initialize New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelicEnabled && cfg.NewRelicLicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
			nrApp = nil
		} else if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			logger.Warn("New Relic connection timeout", zap.Error(err))
		} else {
			logger.Info("New Relic connected")
		}
	}
	instrumented := nrApp != nil

	// Region table and scoring rules
	classifier, err := region.Load(cfg.RegionTablePath)
	if err != nil {
		logger.Fatal("failed to load region table", zap.String("path", cfg.RegionTablePath), zap.Error(err))
	}
	weights, err := matching.ParseWeights(cfg.ScoreWeights)
	if err != nil {
		logger.Fatal("invalid SCORE_WEIGHTS", zap.Error(err))
	}
	scorer, err := matching.NewScorer(weights)
	if err != nil {
		logger.Fatal("invalid scoring rules", zap.Error(err))
	}
	logger.Info("matching configured",
		zap.String("region_table_version", classifier.Version()),
		zap.String("default_region", classifier.DefaultRegion().Key()),
		zap.Any("rules", scorer.Rules()),
	)

	// Initialize PostgreSQL
	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections, instrumented)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	if cfg.RunMigrations {
		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize Redis
	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword, instrumented)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("connected to Redis")

	// Seat change publishers
	snapshots := cache.NewSeatSnapshotCache(redis.Client)
	var publisher events.Publisher = events.NewRedisPublisher(redis.Client, snapshots)
	if cfg.KafkaEnabled() {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSeatTopic)
		defer kafka.Close()
		publisher = events.Fanout{publisher, kafka}
		logger.Info("publishing seat changes to Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaSeatTopic),
		)
	}

	// Initialize repositories
	rideRepo := repository.NewRideRepository(db.DB)
	bookingRepo := repository.NewBookingRepository(db.DB)

	// Initialize services
	pricingService := service.NewPricingService()
	allocator := service.NewSeatAllocator(rideRepo, publisher, cfg.SeatOpTimeout)
	rideService := service.NewRideService(rideRepo, classifier, pricingService)
	searchService := service.NewSearchService(rideRepo, classifier, scorer, service.SearchConfig{
		CandidateLimit:  cfg.SearchCandidateLimit,
		ResultLimit:     cfg.SearchResultLimit,
		DefaultRadiusKM: cfg.NearbyDefaultRadiusKM,
	})
	bookingService := service.NewBookingService(db, bookingRepo, rideRepo, allocator, pricingService, publisher)

	// Initialize handlers
	rideHandler := handler.NewRideHandler(rideService, searchService, bookingService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	seatStream := handler.NewSeatStreamHandler(rideService, snapshots, redis.Client)

	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	go seatStream.Listen(listenCtx)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader, handler.DriverIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.NewRelicMiddleware(nrApp))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := db.Health(ctx); err != nil {
			http.Error(w, "database unhealthy", http.StatusServiceUnavailable)
			return
		}

		if err := redis.Health(ctx); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","services":{"database":"up","redis":"up"}}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, "route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusMethodNotAllowed, utils.ErrorBody{
			Error:   "method_not_allowed",
			Message: r.Method + " is not supported on " + r.URL.Path,
		})
	})

	rateLimiter := middleware.NewRateLimiter(redis.Client, cfg.RateLimitRequests, cfg.RateLimitWindow)
	idempotency := middleware.NewIdempotencyMiddleware(redis.Client, cfg.IdempotencyTTL)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimiter.Handler)
		r.Use(idempotency.Handler)

		rideHandler.RegisterRoutes(r)
		bookingHandler.RegisterRoutes(r)
		seatStream.RegisterRoutes(r)
	})

	// No WriteTimeout: seat streams are long lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(seatStream.Shutdown)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		stopListening()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
		if nrApp != nil {
			nrApp.Shutdown(5 * time.Second)
		}
	}()

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}
