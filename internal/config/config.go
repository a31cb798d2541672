// Package config resolve as configurações do servidor: defaults, depois o
// arquivo YAML opcional indicado em LEDGER_CONFIG, depois variáveis de ambiente.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jbrasil/stockledger/internal/ledger"
	"github.com/jbrasil/stockledger/internal/store"
)

// FileEnv é a variável com o caminho do arquivo YAML opcional
const FileEnv = "LEDGER_CONFIG"

type Config struct {
	Port            string          `yaml:"port"`
	KeyPrefix       string          `yaml:"key_prefix"`
	DefaultPassword string          `yaml:"default_password"`
	Store           StoreConfig     `yaml:"store"`
	Log             LogConfig       `yaml:"log"`
	Telemetry       TelemetryConfig `yaml:"telemetry"`
}

type StoreConfig struct {
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Redis      RedisConfig    `yaml:"redis"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// Default retorna as configurações usadas quando nada as sobrescreve
func Default() Config {
	return Config{
		Port:            "8080",
		KeyPrefix:       ledger.DefaultKeyPrefix,
		DefaultPassword: ledger.DefaultPassword,
		Store: StoreConfig{
			Driver:     store.DriverSQLite,
			SQLitePath: "stockledger.db",
			Postgres: PostgresConfig{
				Host: "localhost",
				Port: "5432",
				User: "root",
				Name: "ledger_db",
			},
			Redis: RedisConfig{Addr: "localhost:6379"},
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "localhost:4318",
			ServiceName:    "stockledger",
			ServiceVersion: "1.0.0",
		},
	}
}

// Load monta a configuração a partir do ambiente do processo
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile lê um arquivo YAML sobre os defaults, sem olhar o ambiente
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.KeyPrefix = getEnv("KEY_PREFIX", c.KeyPrefix)
	c.DefaultPassword = getEnv("DEFAULT_PASSWORD", c.DefaultPassword)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.Postgres.Host = getEnv("DATABASE_HOST", c.Store.Postgres.Host)
	c.Store.Postgres.Port = getEnv("DATABASE_PORT", c.Store.Postgres.Port)
	c.Store.Postgres.User = getEnv("DATABASE_USER", c.Store.Postgres.User)
	c.Store.Postgres.Password = getEnv("DATABASE_PASSWORD", c.Store.Postgres.Password)
	c.Store.Postgres.Name = getEnv("DATABASE_NAME", c.Store.Postgres.Name)
	c.Store.Redis.Addr = getEnv("REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = getEnv("REDIS_PASSWORD", c.Store.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Store.Redis.DB = db
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED %q: %w", v, err)
		}
		c.Telemetry.Enabled = enabled
	}
	c.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Telemetry.ServiceName = getEnv("SERVICE_NAME", c.Telemetry.ServiceName)
	return nil
}

// Validate rejeita configurações com as quais o servidor não sobe
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverMemory, store.DriverSQLite, store.DriverPostgres, store.DriverRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if len(c.DefaultPassword) < ledger.MinPasswordLength {
		return fmt.Errorf("default password must have at least %d characters", ledger.MinPasswordLength)
	}
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	return nil
}

// StoreOptions converte a seção store para store.Open
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:     strings.ToLower(c.Store.Driver),
		SQLitePath: c.Store.SQLitePath,
		Postgres: store.PostgresConfig{
			Host:     c.Store.Postgres.Host,
			Port:     c.Store.Postgres.Port,
			User:     c.Store.Postgres.User,
			Password: c.Store.Postgres.Password,
			Name:     c.Store.Postgres.Name,
		},
		RedisAddr:     c.Store.Redis.Addr,
		RedisPassword: c.Store.Redis.Password,
		RedisDB:       c.Store.Redis.DB,
	}
}

// Addr é o endereço de escuta do servidor HTTP
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
