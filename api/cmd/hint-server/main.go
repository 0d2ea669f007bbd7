package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"cf-hints/api/internal/config"
	"cf-hints/api/internal/handle"
	"cf-hints/api/internal/hints"
	"cf-hints/api/internal/httpserver"
	"cf-hints/api/internal/ingest"
	"cf-hints/api/internal/janitor"
	"cf-hints/api/internal/llm"
	"cf-hints/api/internal/llm/gemini"
	"cf-hints/api/internal/llm/openai"
	"cf-hints/api/internal/logger"
	"cf-hints/api/internal/metrics"
	"cf-hints/api/internal/prompt"
	"cf-hints/api/internal/store"
	"cf-hints/api/internal/tracing"
)

const serviceName = "cf-hint-server"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, flush := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer flush()

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting application",
		zap.String("service", serviceName),
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend))

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	files, err := store.NewFileStore(cfg.DataDir, log)
	if err != nil {
		return err
	}
	backend, err := store.Open(ctx, cfg, files, m, log)
	if err != nil {
		return fmt.Errorf("cache backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing cache backend", zap.Error(err))
		}
	}()

	prompts, err := prompt.Load(cfg.PromptDir)
	if err != nil {
		return err
	}
	breaker := func(stage hints.Stage) llm.BreakerConfig {
		return llm.BreakerConfig{Name: "llm-" + string(stage), ConsecutiveFailures: cfg.BreakerFailures, Cooldown: cfg.BreakerCooldown}
	}
	genClient, err := newCompleter(hints.StageGenerate, cfg.Generate, cfg.LLMTimeout, breaker(hints.StageGenerate), m, log)
	if err != nil {
		return err
	}
	evalClient, err := newCompleter(hints.StageEvaluate, cfg.Evaluate, cfg.LLMTimeout, breaker(hints.StageEvaluate), m, log)
	if err != nil {
		return err
	}
	pipeline := hints.NewPipeline(
		hints.NewGenerator(genClient, llm.Credential(cfg.Generate.APIKey), prompts, log, m),
		hints.NewEvaluator(evalClient, llm.Credential(cfg.Evaluate.APIKey), prompts, log, m),
		log, m,
	)

	svc := ingest.NewService(ingest.Options{
		Artifacts: files,
		Cache:     backend,
		Pipeline:  pipeline,
		Timeout:   cfg.PipelineTimeout,
		Log:       log,
		Metrics:   m,
	})

	jan := janitor.New(svc.Pending(), files, cfg.PendingTTL, log, m)
	if err := jan.Start(cfg.JanitorSchedule); err != nil {
		return fmt.Errorf("janitor schedule %q: %w", cfg.JanitorSchedule, err)
	}
	defer jan.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpserver.NewRouter(handle.New(svc, backend, log), reg, cfg.AllowedOrigins, log)
	srv := httpserver.NewServer(":"+cfg.Port, router, cfg.PipelineTimeout)

	return httpserver.Run(ctx, srv, cfg.PipelineTimeout+5*time.Second, log)
}

// newCompleter builds the provider client for one stage and wraps it with
// rate limiting, the circuit breaker and instrumentation.
func newCompleter(stage hints.Stage, sc config.StageConfig, timeout time.Duration, bc llm.BreakerConfig, m *metrics.Metrics, log *zap.Logger) (llm.Completer, error) {
	var base llm.Completer
	switch sc.Provider {
	case config.ProviderGemini:
		base = gemini.New(sc.BaseURL, sc.Model, timeout)
	case config.ProviderGeminiSDK:
		base = gemini.NewSDK(sc.Model)
	case config.ProviderOpenAI:
		base = openai.New(sc.BaseURL, sc.Model, timeout)
	default:
		return nil, fmt.Errorf("unknown %s provider %q", stage, sc.Provider)
	}
	log.Info("llm stage configured",
		zap.String("stage", string(stage)),
		zap.String("provider", sc.Provider),
		zap.String("model", sc.Model),
		zap.Float64("rpm", sc.RatePerMinute))
	return llm.Chain(base, string(stage), sc.Provider, sc.RatePerMinute, sc.Burst, bc, m, log), nil
}
