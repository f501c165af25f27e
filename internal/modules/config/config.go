package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"chart_analyst/internal/models"
	"chart_analyst/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	tokenTelegramAlt  = "TELEGRAM_BOT_TOKEN"
	geminiKeyENV      = "GEMINI_API_KEY"
	databaseDSN       = "DATABASE_DSN"
	redisAddrENV      = "REDIS_ADDR"
)

// Config ...
type Config struct {
	Service struct {
		Name     string `yaml:"name"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`

	Telegram struct {
		Token       string `yaml:"token"`
		PollTimeout int    `yaml:"poll_timeout"` // секунды long polling
		Debug       bool   `yaml:"debug"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	// JSON-файл настроек чатов и watchlist, пусто, только в памяти
	ChatStore string `yaml:"chat_store"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	Tracing tracing.Config `yaml:"tracing"`

	OKX struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
		Limit   int           `yaml:"limit"` // сколько свечей тянуть на анализ
	} `yaml:"okx"`

	Gemini struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gemini"`

	Chart struct {
		Width      int    `yaml:"width"`  // pt
		Height     int    `yaml:"height"` // pt
		TimeFormat string `yaml:"time_format"`
	} `yaml:"chart"`

	Scheduler struct {
		Spec string `yaml:"spec"` // пусто: выключен
	} `yaml:"scheduler"`

	DefaultTimeframe string                `yaml:"default_timeframe"`
	Strategy         models.StrategyParams `yaml:"strategy"`
}

func defaults() Config {
	var c Config
	c.Service.Name = "chart_analyst"
	c.Service.LogLevel = "info"
	c.Telegram.PollTimeout = 60
	c.ChatStore = "data/chats.json"
	c.Redis.TTL = 30 * time.Second
	c.Health.Addr = ":8080"
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	c.OKX.BaseURL = "https://www.okx.com"
	c.OKX.Timeout = 10 * time.Second
	c.OKX.Limit = 200
	c.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	c.Gemini.Model = "gemini-2.0-flash"
	c.Gemini.Timeout = 60 * time.Second
	c.Chart.Width = 900
	c.Chart.Height = 640
	c.Chart.TimeFormat = "01-02 15:04"
	c.Scheduler.Spec = "0 */15 * * * *"
	c.DefaultTimeframe = "1h"
	c.Strategy = models.DefaultStrategyParams()
	return c
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	return Load(filepath.Join(configDir, configFileName))
}

// Load читает yaml поверх дефолтов и применяет env.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer func() {
		_ = file.Close()
	}()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}

	config.applyEnv()

	if err := config.Strategy.Validate(); err != nil {
		return nil, errors.Wrap(err, "strategy")
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if token := getenvDefault(tokenTelegramENV, os.Getenv(tokenTelegramAlt)); token != "" {
		c.Telegram.Token = token
	}
	if key := os.Getenv(geminiKeyENV); key != "" {
		c.Gemini.APIKey = key
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
	if addr := os.Getenv(redisAddrENV); addr != "" {
		c.Redis.Addr = addr
	}
	c.DefaultTimeframe = getenvDefault("TIMEFRAME", c.DefaultTimeframe)
	c.Scheduler.Spec = getenvDefault("SCHEDULER_SPEC", c.Scheduler.Spec)
	c.ChatStore = getenvDefault("BOT_STORE_PATH", c.ChatStore)
	c.Tracing.Enabled = boolFromEnv("TRACING_ENABLED", c.Tracing.Enabled)

	c.Strategy.ShortWindow = intFromEnv("SMA_SHORT", c.Strategy.ShortWindow)
	c.Strategy.LongWindow = intFromEnv("SMA_LONG", c.Strategy.LongWindow)
	c.Strategy.OscillatorWindow = intFromEnv("RSI_PERIOD", c.Strategy.OscillatorWindow)
	c.Strategy.RiskFraction = floatFromEnv("RISK_FRACTION", c.Strategy.RiskFraction)
	c.Strategy.RewardMultiple = floatFromEnv("REWARD_MULTIPLE", c.Strategy.RewardMultiple)
	c.Strategy.Overbought = floatFromEnv("RSI_OVERBOUGHT", c.Strategy.Overbought)
	c.Strategy.Oversold = floatFromEnv("RSI_OVERSOLD", c.Strategy.Oversold)
	c.Redis.TTL = durationFromEnv("REDIS_TTL", c.Redis.TTL)
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
