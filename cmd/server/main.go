// Command server starts the AI interview coach HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/blobstore"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/textextract"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/aibudget"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// modelClient is the full provider surface the services need.
type modelClient interface {
	domain.AIClient
	domain.Transcriber
}

// redisPinger adapts *redis.Client to the readiness probe interface.
type redisPinger struct{ rdb *redis.Client }

func (r redisPinger) Ping(ctx context.Context) app.RedisPingResult { return r.rdb.Ping(ctx) }

func main() {
	// Local development convenience; a missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so /metrics exposes
	// HTTP and AI instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("migrations failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Redis backs the per-user AI budget and the readiness probe.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = rdb.Close() }()
	budget := aibudget.New(rdb, aibudget.Config{
		Capacity:     int64(cfg.AIBudgetCapacity),
		RefillPerMin: cfg.AIBudgetRefillPerMin,
	})

	var aicl modelClient
	if cfg.AIProvider == "stub" {
		slog.Info("using stub AI provider")
		aicl = stub.New()
	} else {
		breaker := ai.NewCircuitBreaker(cfg.AICircuitFailures, cfg.AICircuitCooldown)
		aicl = ai.NewBreakerClient(ai.New(cfg), breaker)
	}

	blobs, err := blobstore.New(cfg.UploadDir)
	if err != nil {
		slog.Error("blob store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	qcfg := config.QuestionConfigFromFile(cfg.QuestionConfigPath)

	// Repositories
	users := postgres.NewUserRepo(pool)
	resumes := postgres.NewResumeRepo(pool)
	interviews := postgres.NewInterviewRepo(pool)
	responses := postgres.NewResponseRepo(pool)
	reports := postgres.NewReportRepo(pool)

	// Usecases
	authSvc := usecase.NewAuthService(users)
	resumeSvc := usecase.NewResumeService(resumes, blobs, textextract.New(), aicl, budget, cfg)
	interviewSvc := usecase.NewInterviewService(interviews, resumes, blobs, aicl,
		usecase.NewQuestionBuilder(aicl, budget, cfg, qcfg),
		usecase.NewEvaluator(aicl, budget, cfg))
	reportSvc := usecase.NewReportService(interviews, responses, reports, aicl, budget, cfg)

	maybeSeed(ctx, cfg, authSvc)

	dbCheck, redisCheck := app.BuildReadinessChecks(pool, redisPinger{rdb: rdb})
	srv := httpserver.NewServer(cfg, authSvc, resumeSvc, interviewSvc, reportSvc, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
	slog.Info("server stopped")
}

// connectDB opens the pool and pings it with exponential backoff so the
// server survives a database that is still booting.
func connectDB(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(bo, ctx)); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
