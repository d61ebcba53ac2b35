package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	api "github.com/mind-engage/mindengage-autograde/internal/api/http"
	"github.com/mind-engage/mindengage-autograde/internal/attempt"
	"github.com/mind-engage/mindengage-autograde/internal/config"
	"github.com/mind-engage/mindengage-autograde/internal/db"
	"github.com/mind-engage/mindengage-autograde/internal/grading"
	"github.com/mind-engage/mindengage-autograde/internal/observability"
	"github.com/mind-engage/mindengage-autograde/internal/ranking"
	"github.com/mind-engage/mindengage-autograde/internal/rating"
	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	// --- Optional Redis / NATS ---
	redisClient, err := ranking.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := syncx.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	// --- Services ---
	grader := grading.NewGrader()
	rater := rating.Default
	ranks := ranking.NewService(dbh, redisClient, cfg.RankingCacheTTL, logger)
	attempts := attempt.NewService(attempt.NewSQLStore(dbh),
		attempt.WithGrader(grader),
		attempt.WithRatingEngine(rater),
		attempt.WithPublisher(syncx.NewNATSPublisher(natsConn, cfg.NATSSubject)),
		attempt.WithInvalidator(ranks),
		attempt.WithSiteID(cfg.SiteID),
		attempt.WithMaxRetries(cfg.RatingMaxRetries),
		attempt.WithLogger(logger),
	)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, observability.Middleware(logger), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Grader:   grader,
		Rating:   rater,
		Attempts: attempts,
		Ranking:  ranks,
		Events:   syncx.NewEventRepo(dbh),
		Validate: validator.New(validator.WithRequiredStructEnabled()),
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("mode", string(cfg.Mode)).
			Str("db", cfg.DBDriver).
			Bool("redis", redisClient != nil).
			Bool("nats", natsConn != nil).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(srv, logger)
}

func waitForShutdown(srv *http.Server, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
