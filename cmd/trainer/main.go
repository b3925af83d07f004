package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/mind-engage/denken-trainer/internal/api/http"
	"github.com/mind-engage/denken-trainer/internal/categories"
	"github.com/mind-engage/denken-trainer/internal/config"
	"github.com/mind-engage/denken-trainer/internal/db"
	"github.com/mind-engage/denken-trainer/internal/grading"
	"github.com/mind-engage/denken-trainer/internal/logger"
	"github.com/mind-engage/denken-trainer/internal/questions"
	"github.com/mind-engage/denken-trainer/internal/session"
)

const devSecret = "denken-dev-session-secret"

func main() {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("trainer stopped", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	// --- Questions ---
	src, closeSrc, err := openSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	cache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	catalog := categories.Default()
	repo := questions.NewRepository(src, cache, catalog, log)

	// --- Grading ---
	gradeOpts := []grading.Option{
		grading.WithTimeout(cfg.GraderTimeout),
		grading.WithLogger(log),
	}
	if cfg.AIGradingEnabled() {
		gradeOpts = append(gradeOpts, grading.WithCompleter(grading.NewOpenAICompleter(cfg.GraderAPIKey, cfg.GraderBaseURL, cfg.GraderModel)))
	}
	eval := grading.NewEvaluator(gradeOpts...)

	// --- Sessions ---
	if cfg.SessionSecret == devSecret && cfg.AppEnv == "prod" {
		log.Warn("SESSION_SECRET is the development default")
	}
	codec, err := session.NewCodec(cfg.SessionSecret, repo)
	if err != nil {
		return err
	}
	trainer := session.NewTrainer(repo, eval,
		session.WithDefaultCount(cfg.DefaultQuestionCount),
		session.WithLogger(log),
	)

	renderer, err := api.NewRenderer(log)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(log), middleware.Recoverer)
	// AI grading runs inside the answer handler, so leave room past its own timeout
	r.Use(middleware.Timeout(cfg.GraderTimeout + 15*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, &api.Deps{
		Trainer:  trainer,
		Codec:    codec,
		Renderer: renderer,
		Catalog:  catalog,
		Ready: func(ctx context.Context) error {
			_, err := repo.LoadAll(ctx)
			return err
		},
		AIEnabled:    eval.AIEnabled(),
		ExamDate:     cfg.ExamDate,
		DefaultCount: cfg.DefaultQuestionCount,
		CookieSecure: cfg.CookieSecure,
		Log:          log,
	})

	// warm the cache; a failure here only shows up in /readyz
	if qs, err := repo.LoadAll(ctx); err != nil {
		log.Warn("initial question load failed", "error", err)
	} else {
		log.Info("questions loaded", "count", len(qs))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("listening", "addr", cfg.HTTPAddr, "source", cfg.QuestionSource, "cache", cfg.QuestionCache, "ai_grading", eval.AIEnabled())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func openSource(ctx context.Context, cfg config.Config, log *logger.Logger) (questions.Source, func(), error) {
	switch cfg.QuestionSource {
	case "csv", "":
		return questions.NewCSVDir(cfg.CSVBaseDir, log), func() {}, nil
	case "sql":
		octx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		dbh, err := db.Open(octx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		return questions.NewSQLStore(dbh), func() { _ = dbh.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown QUESTION_SOURCE %q", cfg.QuestionSource)
	}
}

func openCache(ctx context.Context, cfg config.Config, log *logger.Logger) (questions.Cache, func(), error) {
	switch cfg.QuestionCache {
	case "none":
		return questions.NoCache(), func() {}, nil
	case "memory", "":
		return questions.NewMemoryCache(), func() {}, nil
	case "redis":
		rc, err := questions.NewRedisCache(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			log.Warn("redis cache unavailable, using memory", "addr", cfg.RedisAddr, "error", err)
			return questions.NewMemoryCache(), func() {}, nil
		}
		return rc, func() { _ = rc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown QUESTION_CACHE %q", cfg.QuestionCache)
	}
}
