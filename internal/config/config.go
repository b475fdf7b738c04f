// Package config - настройки клиента и dev-сервера: TOML-файл,
// поверх которого накладываются .env и переменные окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

// Config - все настройки приложения.
type Config struct {
	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
}

type ClientConfig struct {
	APIURL          string   `toml:"api_url"`
	Token           string   `toml:"token"`
	HTTPTimeout     Duration `toml:"http_timeout"`
	StateDB         string   `toml:"state_db"`
	LogLevel        string   `toml:"log_level"`
	RelayEnabled    bool     `toml:"relay_enabled"`
	RefreshInterval Duration `toml:"refresh_interval"`
}

type ServerConfig struct {
	Port        string `toml:"port"`
	Storage     string `toml:"storage"`
	DatabaseURL string `toml:"database_url"`
	LogLevel    string `toml:"log_level"`
	Debug       bool   `toml:"debug"`
}

// Duration хранится в TOML строкой вида "10s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default возвращает настройки для локального запуска.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			APIURL:          "http://localhost:8000/api",
			HTTPTimeout:     Duration{10 * time.Second},
			LogLevel:        "info",
			RelayEnabled:    true,
			RefreshInterval: Duration{30 * time.Second},
		},
		Server: ServerConfig{
			Port:     "8000",
			Storage:  StorageInMemory,
			LogLevel: "info",
		},
	}
}

// Dir возвращает каталог настроек пользователя.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "testbook"), nil
}

// Path возвращает путь к config.toml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load читает файл path (пустой - путь по умолчанию) поверх Default и
// накладывает окружение. Отсутствующий файл не считается ошибкой.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv загружает переменные из .env файлов, не перетирая уже заданные.
// Без аргументов читается .env текущего каталога; его отсутствие не ошибка.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && len(files) == 0 && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Save записывает настройки в path (пустой - путь по умолчанию).
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

func (c *Config) applyEnv() error {
	var result *multierror.Error

	setString(&c.Client.APIURL, "TESTBOOK_API_URL")
	setString(&c.Client.Token, "TESTBOOK_TOKEN")
	setString(&c.Client.StateDB, "TESTBOOK_STATE_DB")
	setString(&c.Client.LogLevel, "TESTBOOK_LOG_LEVEL")
	result = multierror.Append(result,
		setDuration(&c.Client.HTTPTimeout, "TESTBOOK_HTTP_TIMEOUT"),
		setDuration(&c.Client.RefreshInterval, "TESTBOOK_REFRESH_INTERVAL"),
		setBool(&c.Client.RelayEnabled, "TESTBOOK_RELAY_ENABLED"),
	)

	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Storage, "TESTBOOK_STORAGE")
	setString(&c.Server.DatabaseURL, "DATABASE_URL")
	setString(&c.Server.LogLevel, "TESTBOOK_SERVER_LOG_LEVEL")
	result = multierror.Append(result, setBool(&c.Server.Debug, "TESTBOOK_DEBUG"))

	return result.ErrorOrNil()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// Validate проверяет настройки клиента.
func (c ClientConfig) Validate() error {
	var result *multierror.Error
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("api_url: %w", err))
	}
	if c.HTTPTimeout.Duration <= 0 {
		result = multierror.Append(result, errors.New("http_timeout must be positive"))
	}
	if c.RefreshInterval.Duration <= 0 {
		result = multierror.Append(result, errors.New("refresh_interval must be positive"))
	}
	return result.ErrorOrNil()
}

// Validate проверяет настройки сервера.
func (c ServerConfig) Validate() error {
	switch c.Storage {
	case StorageInMemory:
		return nil
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url must be set for postgres storage")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage %q (want %s or %s)", c.Storage, StorageInMemory, StoragePostgres)
	}
}

// StatePath возвращает путь к SQLite-файлу с состоянием клиента.
func (c ClientConfig) StatePath() (string, error) {
	if c.StateDB != "" {
		return c.StateDB, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// RelationshipsURL строит websocket-адрес потока отношений из api_url.
func (c ClientConfig) RelationshipsURL() (string, error) {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/relationships"
	return u.String(), nil
}
