package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "./config/config.yaml"

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	BaseURL    string     `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	HashCost   int        `yaml:"hash_cost" env:"HASH_COST" env-default:"12"`
	Tokens     Tokens     `yaml:"tokens"`
	Storage    Storage    `yaml:"storage"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	RabbitMQ   RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env-default:"10"`
	Migrate  bool   `yaml:"migrate" env:"POSTGRES_MIGRATE" env-default:"true"`
}

// * DSN is the pgx connection URL with escaped credentials
func (p Postgres) DSN() string {
	return p.url("postgres")
}

// MigrateURL is the connection URL understood by golang-migrate's pgx/v5 driver.
func (p Postgres) MigrateURL() string {
	return p.url("pgx5")
}

func (p Postgres) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DBName,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"emails"`
}

// Storage selects the drivers. Users and refresh tokens live in Driver;
// one-time tokens live in OneTimeTokens, which defaults to Driver.
type Storage struct {
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	OneTimeTokens string `yaml:"one_time_tokens" env:"STORAGE_ONE_TIME_TOKENS"`
}

type TokenConfig struct {
	Secret string        `yaml:"secret" env:"SECRET"`
	TTL    time.Duration `yaml:"ttl" env:"TTL"`
}

type Tokens struct {
	Access        TokenConfig `yaml:"access" env-prefix:"ACCESS_TOKEN_"`
	Refresh       TokenConfig `yaml:"refresh" env-prefix:"REFRESH_TOKEN_"`
	ConfirmEmail  TokenConfig `yaml:"confirm_email" env-prefix:"CONFIRM_EMAIL_TOKEN_"`
	ResetPassword TokenConfig `yaml:"reset_password" env-prefix:"RESET_PASSWORD_TOKEN_"`
}

func (t Tokens) byPurpose() map[string]TokenConfig {
	return map[string]TokenConfig{
		"access":         t.Access,
		"refresh":        t.Refresh,
		"confirm_email":  t.ConfirmEmail,
		"reset_password": t.ResetPassword,
	}
}

func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]string)
	for purpose, tc := range c.Tokens.byPurpose() {
		if tc.Secret == "" {
			errs = append(errs, fmt.Errorf("tokens.%s.secret is empty", purpose))
		} else if other, ok := seen[tc.Secret]; ok {
			errs = append(errs, fmt.Errorf("tokens.%s.secret duplicates tokens.%s.secret", purpose, other))
		} else {
			seen[tc.Secret] = purpose
		}

		if tc.TTL <= 0 {
			errs = append(errs, fmt.Errorf("tokens.%s.ttl must be positive", purpose))
		}
	}

	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	switch c.Storage.OneTimeTokens {
	case "", DriverPostgres, DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.one_time_tokens %q is not supported", c.Storage.OneTimeTokens))
	}

	return errors.Join(errs...)
}

func (c *Config) OneTimeTokenDriver() string {
	if c.Storage.OneTimeTokens == "" {
		return c.Storage.Driver
	}
	return c.Storage.OneTimeTokens
}

// * MustLoad loads .env, then the file at CONFIG_PATH with env overrides
func MustLoad() *Config {
	cfg, err := Load(configPath())
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}
