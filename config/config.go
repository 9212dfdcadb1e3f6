package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR"`
	WSPath          string        `yaml:"wsPath" env:"HTTP_WS_PATH"`
	AllowedOrigins  []string      `yaml:"allowedOrigins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"HTTP_READ_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type GRPC struct {
	Addr        string        `yaml:"addr" env:"GRPC_ADDR"`
	CallTimeout time.Duration `yaml:"callTimeout" env:"GRPC_CALL_TIMEOUT"`
}

type Logging struct {
	Env       string `yaml:"env" env:"APP_ENV"`              // dev|stage|prod
	Service   string `yaml:"service" env:"LOG_SERVICE"`      // chat-relay
	Version   string `yaml:"version" env:"APP_VERSION"`      // v0.1.0
	Backend   string `yaml:"backend" env:"LOG_BACKEND"`      // std|zap
	Level     string `yaml:"level" env:"LOG_LEVEL"`          // debug|info|warn|error
	AddSource bool   `yaml:"addSource" env:"LOG_ADD_SOURCE"` // false|true
	Debug     bool   `yaml:"debug" env:"LOG_DEBUG"`          // false|true
}

type WS struct {
	ReadLimit  int64         `yaml:"readLimit" env:"WS_READ_LIMIT"`
	SendBuffer int           `yaml:"sendBuffer" env:"WS_SEND_BUFFER"`
	PingEvery  time.Duration `yaml:"pingEvery" env:"WS_PING_EVERY"`
	WriteWait  time.Duration `yaml:"writeWait" env:"WS_WRITE_WAIT"`
}

type Poll struct {
	IDRange int `yaml:"idRange" env:"POLL_ID_RANGE"`
}

type Tracing struct {
	Enabled bool `yaml:"enabled" env:"TRACING_ENABLED"`
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	GRPC    GRPC    `yaml:"grpc"`
	Logging Logging `yaml:"logging"`
	WS      WS      `yaml:"ws"`
	Poll    Poll    `yaml:"poll"`
	Tracing Tracing `yaml:"tracing"`
}

// LoadConfig reads an optional .env file, then the YAML file at CONFIG_PATH
// (default ./config/config.yaml), then applies environment overrides.
// A missing default file leaves built-in defaults; a missing CONFIG_PATH
// file is an error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path, explicit := os.LookupEnv("CONFIG_PATH")
	if path == "" {
		path, explicit = defaultPath, false
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.WSPath == "" {
		c.HTTP.WSPath = "/start_web_socket"
	}
	if !strings.HasPrefix(c.HTTP.WSPath, "/") {
		return fmt.Errorf("http.wsPath must start with '/': %q", c.HTTP.WSPath)
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}
	if c.GRPC.CallTimeout == 0 {
		c.GRPC.CallTimeout = 10 * time.Second
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "chat-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Logging.Backend != "std" && c.Logging.Backend != "zap" {
		return fmt.Errorf("logging.backend must be std or zap, got %q", c.Logging.Backend)
	}

	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = 64 << 10
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 256
	}
	if c.WS.PingEvery <= 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.WS.WriteWait <= 0 {
		c.WS.WriteWait = 5 * time.Second
	}

	if c.Poll.IDRange < 0 {
		return errors.New("poll.idRange must not be negative")
	}
	if c.Poll.IDRange == 0 {
		c.Poll.IDRange = 1_000_000
	}
	return nil
}
