// config реализует конфигурацию виджета комментариев: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Поддерживаемые бэкенды фида.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendPebble = "pebble"
)

// Config — корневая конфигурация.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
//
// Перед наложением ENV подгружается ./.env (если есть); уже заданные переменные не перетираются.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	Feed     FeedConfig     `yaml:"feed"`
	DB       DBConfig       `yaml:"db"`
	Pebble   PebbleConfig   `yaml:"pebble"`
	Sync     SyncConfig     `yaml:"sync"`
	Limits   LimitsConfig   `yaml:"limits"`
	Identity IdentityConfig `yaml:"identity"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// FeedConfig — какой фид показывает виджет и где он хранится.
type FeedConfig struct {
	// Identifier — идентификатор ресурса; топик фида = keccak256(Identifier).
	Identifier string `yaml:"identifier" env:"FEED_IDENTIFIER" env-required:"true"`
	Backend    string `yaml:"backend"    env:"FEED_BACKEND"    env-default:"memory"`
}

// DBConfig — подключение к MongoDB (обязательно для backend=mongo).
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// PebbleConfig — каталог встроенной базы (backend=pebble).
type PebbleConfig struct {
	Path string `yaml:"path" env:"PEBBLE_PATH" env-default:"./data/feed"`
}

// SyncConfig — параметры движка синхронизации.
type SyncConfig struct {
	// PageSize — размер начальной страницы и страницы истории.
	PageSize int `yaml:"page_size" env:"PAGE_SIZE" env-default:"9"`
	// BatchSize — максимум новых записей за один тик опроса.
	BatchSize    int           `yaml:"batch_size"    env:"BATCH_SIZE"    env-default:"5"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"10s"`
}

// LimitsConfig — ограничения формы отправки.
type LimitsConfig struct {
	MaxCharacters int `yaml:"max_characters" env:"MAX_CHARACTERS" env-default:"4096"`
	// SubmitRate — допустимое число отправок в секунду; SubmitBurst — размер всплеска.
	SubmitRate  float64 `yaml:"submit_rate"  env:"SUBMIT_RATE"  env-default:"1"`
	SubmitBurst int     `yaml:"submit_burst" env:"SUBMIT_BURST" env-default:"3"`
}

// IdentityConfig — от чьего имени виджет пишет комментарии.
// Address и PrivateKey взаимоисключающие: адрес либо задан явно, либо выводится из ключа.
type IdentityConfig struct {
	DisplayName string `yaml:"display_name" env:"IDENTITY_NAME"`
	Address     string `yaml:"address"      env:"IDENTITY_ADDRESS"`
	PrivateKey  string `yaml:"private_key"  env:"IDENTITY_PRIVATE_KEY"`
}

// TimeoutConfig — сервисные таймауты (общий дедлайн обработки запроса).
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"5s"`
}

// GRPCConfig — сетевые настройки gRPC-сервера (health).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50055"`
}

// HTTPConfig — HTTP API виджета, health и metrics.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50085"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	read := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return read(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return read(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return read("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv подгружает ./.env, если файл существует.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}

	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	return nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Feed.Identifier) == "" {
		return fmt.Errorf("feed.identifier is required")
	}

	switch c.Feed.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for feed.backend=mongo")
		}
	case BackendPebble:
		if strings.TrimSpace(c.Pebble.Path) == "" {
			return fmt.Errorf("pebble.path is required for feed.backend=pebble")
		}
	default:
		return fmt.Errorf("feed.backend must be one of memory|mongo|pebble, got %q", c.Feed.Backend)
	}

	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be > 0")
	}

	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be > 0")
	}

	if c.Sync.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.poll_interval must be at least 100ms")
	}

	if c.Limits.MaxCharacters <= 0 {
		return fmt.Errorf("limits.max_characters must be > 0")
	}

	if c.Limits.SubmitRate <= 0 || c.Limits.SubmitBurst <= 0 {
		return fmt.Errorf("limits.submit_rate and limits.submit_burst must be > 0")
	}

	if c.Identity.Address != "" && c.Identity.PrivateKey != "" {
		return fmt.Errorf("identity.address and identity.private_key are mutually exclusive")
	}

	return nil
}
