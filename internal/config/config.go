// Package config loads the service configuration from the environment
// (optionally seeded from a .env file) and holds the tunable constants of the
// matching core.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ModeDev  = "dev"
	ModeProd = "prod"

	// EnvPrefix is prepended to every variable name, e.g. CHAT_HTTP_ADDR.
	EnvPrefix = "CHAT"
)

const (
	// MaxContentLength bounds a single relayed message, in runes.
	MaxContentLength = 2000
	// MaxDisplayNameLength bounds a participant label, in runes.
	MaxDisplayNameLength = 64
	// SessionEventsChannel is the Redis channel session start/end events are published on.
	SessionEventsChannel = "chat:sessions"
)

type LogConfig struct {
	Path       string `envconfig:"PATH" default:"logs"`
	FileName   string `envconfig:"FILE_NAME"`
	Level      string `envconfig:"LEVEL" default:"info"`
	MaxSize    int    `envconfig:"MAX_SIZE" default:"100"`
	MaxBackups int    `envconfig:"MAX_BACKUPS" default:"5"`
	MaxAge     int    `envconfig:"MAX_AGE" default:"30"`
}

type PersonaConfig struct {
	Enabled       bool          `envconfig:"ENABLED" default:"true"`
	Name          string        `envconfig:"NAME" default:"Sarah"`
	ReplyMinDelay time.Duration `envconfig:"REPLY_MIN_DELAY" default:"1s"`
	ReplyMaxDelay time.Duration `envconfig:"REPLY_MAX_DELAY" default:"3s"`
}

type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type Config struct {
	Mode     string `envconfig:"MODE" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"change-me"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"72h"`

	MatchFallbackWait  time.Duration `envconfig:"MATCH_FALLBACK_WAIT" default:"8s"`
	StaleAfter         time.Duration `envconfig:"STALE_AFTER" default:"180s"`
	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`
	GuestFilterEnabled bool          `envconfig:"GUEST_FILTER_ENABLED" default:"true"`
	SendBuffer         int           `envconfig:"SEND_BUFFER" default:"256"`

	DatabaseDSN string      `envconfig:"DATABASE_DSN"`
	Redis       RedisConfig `envconfig:"REDIS"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	LocalesDir       string `envconfig:"LOCALES_DIR"`

	ArchiveWorkers int `envconfig:"ARCHIVE_WORKERS" default:"2"`
	ArchiveBuffer  int `envconfig:"ARCHIVE_BUFFER" default:"256"`

	Persona PersonaConfig `envconfig:"PERSONA"`
	Log     LogConfig     `envconfig:"LOG"`
}

// Load reads an optional .env file and then the CHAT_* environment.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeProd {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.MatchFallbackWait <= 0 {
		return errors.New("match fallback wait must be positive")
	}
	if c.Persona.ReplyMinDelay < 0 || c.Persona.ReplyMinDelay > c.Persona.ReplyMaxDelay {
		return fmt.Errorf("persona reply delay bounds invalid: min %s, max %s",
			c.Persona.ReplyMinDelay, c.Persona.ReplyMaxDelay)
	}
	if c.SendBuffer <= 0 {
		return errors.New("send buffer must be positive")
	}
	return nil
}
