package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cf-hints/api/internal/config"
	"cf-hints/api/internal/httpserver"
	"cf-hints/api/internal/logger"
	"cf-hints/api/internal/store"
	"cf-hints/api/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateBot(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, flush := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer flush()

	if err := run(cfg, log); err != nil {
		log.Error("bot failed", zap.Error(err))
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var files *store.FileStore
	if cfg.CacheBackend == config.BackendFile {
		fs, err := store.NewFileStore(cfg.DataDir, log)
		if err != nil {
			return err
		}
		files = fs
	}
	backend, err := store.Open(ctx, cfg, files, nil, log)
	if err != nil {
		return fmt.Errorf("cache backend: %w", err)
	}
	defer func() { _ = backend.Close() }()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	log.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	r := &telegram.Router{Bot: bot, Hints: backend, Log: log.Named("telegram")}

	// health server; polling does not need it but the platform probes /healthz
	health := httpserver.NewRouter(httpserver.Health{Body: "ok", Check: backend.Check}, nil, nil, log)
	srv := httpserver.NewServer(":"+cfg.Port, health, 0)
	go func() {
		if err := httpserver.Run(ctx, srv, 5*time.Second, log); err != nil {
			log.Error("health server", zap.Error(err))
		}
	}()

	runPolling(ctx, bot, log, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
	return nil
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// updateSource is the part of *tgbotapi.BotAPI polling needs.
type updateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// runPolling long-polls until ctx is cancelled, backing off on errors
// instead of exiting.
func runPolling(ctx context.Context, bot updateSource, log *zap.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		if ctx.Err() != nil {
			log.Info("polling: context cancelled")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
