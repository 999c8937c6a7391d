package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the server process.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	DB        DBConfig        `yaml:"db" envPrefix:"DB_"`
	JWT       JWTConfig       `yaml:"jwt" envPrefix:"JWT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	AMQP      AMQPConfig      `yaml:"amqp" envPrefix:"AMQP_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

type ServerConfig struct {
	Port              string        `yaml:"port" env:"PORT"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	CORSOrigins       []string      `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	AuthRatePerMinute int           `yaml:"auth_rate_per_minute" env:"AUTH_RATE_PER_MINUTE"`
	StaticDir         string        `yaml:"static_dir" env:"STATIC_DIR"`
}

type DBConfig struct {
	URL            string        `yaml:"url" env:"URL"`
	MaxConns       int32         `yaml:"max_conns" env:"MAX_CONNS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"SECRET"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // json|console
}

// AMQPConfig configures domain event publishing. An empty URL disables it.
type AMQPConfig struct {
	URL      string `yaml:"url" env:"URL"`
	Exchange string `yaml:"exchange" env:"EXCHANGE"`
}

// TelemetryConfig configures tracing. An empty endpoint disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
}

const envPrefix = "NASCON_"

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              "8080",
			RequestTimeout:    15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			AuthRatePerMinute: 20,
		},
		DB: DBConfig{
			MaxConns:       10,
			ConnectTimeout: 30 * time.Second,
		},
		JWT: JWTConfig{TTL: 7 * 24 * time.Hour, RefreshTTL: 30 * 24 * time.Hour},
		Log: LogConfig{Level: "info", Format: "json"},
		AMQP: AMQPConfig{
			Exchange: "nascon.events",
		},
		Telemetry: TelemetryConfig{ServiceName: "nascon-platform"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty or the file does not exist), then environment
// variables. DATABASE_URL, JWT_SECRET and PORT are honoured for compatibility
// and lose to their NASCON_ counterparts.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DB.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DB.URL == "" {
		return errors.New("database url is required (NASCON_DB_URL or DATABASE_URL)")
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("jwt secret must be at least 16 bytes (NASCON_JWT_SECRET or JWT_SECRET)")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt refresh_ttl must be positive")
	}
	if c.DB.MaxConns <= 0 {
		return errors.New("db max_conns must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Server.Port
}
