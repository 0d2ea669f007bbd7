package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini    = "gemini"
	ProviderGeminiSDK = "gemini-sdk"
	ProviderOpenAI    = "openai"

	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// StageConfig configures the model behind one pipeline stage.
type StageConfig struct {
	Provider      string  `yaml:"provider"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	RatePerMinute float64 `yaml:"rpm"`
	Burst         int     `yaml:"burst"`
}

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	DataDir         string        `yaml:"data_dir"`
	PromptDir       string        `yaml:"prompt_dir"`
	LLMTimeout      time.Duration `yaml:"llm_timeout"`
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`

	Generate StageConfig `yaml:"generate"`
	Evaluate StageConfig `yaml:"evaluate"`

	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	CacheBackend  string `yaml:"cache_backend"`
	CacheLRUSize  int    `yaml:"cache_lru_size"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	AllowedOrigins  []string      `yaml:"allowed_origins"`
	PendingTTL      time.Duration `yaml:"pending_ttl"`
	JanitorSchedule string        `yaml:"janitor_schedule"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	OTLPEndpoint     string `yaml:"otlp_endpoint"`
}

func defaults() *Config {
	return &Config{
		Port:            "8000",
		Environment:     "development",
		LogLevel:        "info",
		LogFormat:       "json",
		DataDir:         "codeforces_data",
		LLMTimeout:      60 * time.Second,
		PipelineTimeout: 150 * time.Second,
		Generate:        StageConfig{Provider: ProviderGemini, Model: "gemini-2.0-flash", Burst: 1},
		Evaluate:        StageConfig{Provider: ProviderGemini, Model: "gemini-2.0-flash", Burst: 1},
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		CacheBackend:    BackendFile,
		CacheLRUSize:    256,
		AllowedOrigins:  []string{"*"},
		PendingTTL:      24 * time.Hour,
		JanitorSchedule: "@every 1h",
	}
}

// Load applies, in order: defaults, the YAML file named by CONFIG (hints.yaml
// when unset and present), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	path, explicit := os.LookupEnv("CONFIG")
	if !explicit || strings.TrimSpace(path) == "" {
		path = "hints.yaml"
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, k string) {
		if v := getEnv(k, ""); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
				return
			}
			*dst = d
		}
	}
	num := func(dst *int, k string) {
		if v := getEnv(k, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
				return
			}
			*dst = n
		}
	}
	rate := func(dst *float64, k string) {
		if v := getEnv(k, ""); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
				return
			}
			*dst = f
		}
	}

	str(&c.Port, "PORT")
	str(&c.Environment, "ENVIRONMENT")
	str(&c.LogLevel, "LOG_LEVEL")
	str(&c.LogFormat, "LOG_FORMAT")
	str(&c.DataDir, "DATA_DIR")
	str(&c.PromptDir, "PROMPT_DIR")
	dur(&c.LLMTimeout, "LLM_TIMEOUT")
	dur(&c.PipelineTimeout, "PIPELINE_TIMEOUT")

	str(&c.Generate.Provider, "GENERATE_PROVIDER")
	str(&c.Generate.APIKey, "GENERATE_API_KEY", "GEMINI_KEY_1")
	str(&c.Generate.Model, "GENERATE_MODEL")
	str(&c.Generate.BaseURL, "GENERATE_BASE_URL")
	rate(&c.Generate.RatePerMinute, "GENERATE_RPM")
	num(&c.Generate.Burst, "GENERATE_BURST")

	str(&c.Evaluate.Provider, "EVALUATE_PROVIDER")
	str(&c.Evaluate.APIKey, "EVALUATE_API_KEY", "GEMINI_KEY_2")
	str(&c.Evaluate.Model, "EVALUATE_MODEL")
	str(&c.Evaluate.BaseURL, "EVALUATE_BASE_URL")
	rate(&c.Evaluate.RatePerMinute, "EVALUATE_RPM")
	num(&c.Evaluate.Burst, "EVALUATE_BURST")

	failures := int(c.BreakerFailures)
	num(&failures, "BREAKER_FAILURES")
	if failures < 0 {
		errs = append(errs, fmt.Errorf("BREAKER_FAILURES: must not be negative"))
	} else {
		c.BreakerFailures = uint32(failures)
	}
	dur(&c.BreakerCooldown, "BREAKER_COOLDOWN")

	str(&c.CacheBackend, "CACHE_BACKEND")
	num(&c.CacheLRUSize, "CACHE_LRU_SIZE")
	str(&c.DatabaseURL, "DATABASE_URL")
	str(&c.RedisAddr, "REDIS_ADDR")
	str(&c.RedisPassword, "REDIS_PASSWORD")
	num(&c.RedisDB, "REDIS_DB")

	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	dur(&c.PendingTTL, "PENDING_TTL")
	str(&c.JanitorSchedule, "JANITOR_SCHEDULE")

	str(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	str(&c.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	return errors.Join(errs...)
}

// Validate checks what the HTTP service needs to start.
func (c *Config) Validate() error {
	var errs []error
	for _, s := range []struct {
		name, keyEnv, legacy string
		cfg                  StageConfig
	}{
		{"generate", "GENERATE_API_KEY", "GEMINI_KEY_1", c.Generate},
		{"evaluate", "EVALUATE_API_KEY", "GEMINI_KEY_2", c.Evaluate},
	} {
		if strings.TrimSpace(s.cfg.APIKey) == "" {
			errs = append(errs, fmt.Errorf("missing credential for %s stage: set %s or %s", s.name, s.keyEnv, s.legacy))
		}
		switch s.cfg.Provider {
		case ProviderGemini, ProviderGeminiSDK, ProviderOpenAI:
		default:
			errs = append(errs, fmt.Errorf("unknown %s provider %q", s.name, s.cfg.Provider))
		}
		if s.cfg.RatePerMinute < 0 {
			errs = append(errs, fmt.Errorf("%s rpm must not be negative", s.name))
		}
	}
	if c.LLMTimeout <= 0 || c.PipelineTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.PendingTTL <= 0 {
		errs = append(errs, errors.New("PENDING_TTL must be positive"))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("DATA_DIR is empty"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	errs = append(errs, c.validateBackend())
	return errors.Join(errs...)
}

// ValidateBot checks what the Telegram bot needs to start.
func (c *Config) ValidateBot() error {
	var errs []error
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		errs = append(errs, errors.New("missing TELEGRAM_BOT_TOKEN"))
	}
	errs = append(errs, c.validateBackend())
	return errors.Join(errs...)
}

func (c *Config) validateBackend() error {
	switch c.CacheBackend {
	case BackendFile:
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("CACHE_BACKEND=postgres needs DATABASE_URL")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("CACHE_BACKEND=redis needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
