package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Env           string        `yaml:"env" env:"ENV" env-default:"local"`
	PublicBaseURL string        `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:3000"`
	Storage       StorageConfig `yaml:"storage"`
	Redis         RedisConf     `yaml:"redis"`
	HTTP          HTTPConfig    `yaml:"http"`
	Auth          AuthConfig    `yaml:"auth"`
	Photos        PhotosConfig  `yaml:"photos"`
	QR            QRConfig      `yaml:"qr"`
}

// StorageConfig selects the repository backend. DSN is a connection string
// for postgres and a file path for sqlite.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	DSN    string `yaml:"dsn" env:"STORAGE_DSN"`
}

// RedisConf points at the refresh token store. An empty address keeps
// tokens in process memory.
type RedisConf struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type HTTPConfig struct {
	Host         string        `yaml:"host" env:"HTTP_HOST"`
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"2m"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	CORSOrigins  []string      `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-default:"*"`
}

type AuthConfig struct {
	Secret             string        `yaml:"secret" env:"AUTH_SECRET" env-required:"true"`
	TokenTTL           time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
	RefreshTTL         time.Duration `yaml:"refresh_ttl" env:"AUTH_REFRESH_TTL" env-default:"720h"`
	SuperadminUsername string        `yaml:"superadmin_username" env:"SUPERADMIN_USERNAME" env-default:"superadmin"`
	SuperadminPassword string        `yaml:"superadmin_password" env:"SUPERADMIN_PASSWORD" env-default:"changeme123"`
}

type PhotosConfig struct {
	MaxSize           int64         `yaml:"max_size" env:"PHOTOS_MAX_SIZE" env-default:"20971520"`
	ThumbnailCacheTTL time.Duration `yaml:"thumbnail_cache_ttl" env-default:"10m"`
}

type QRConfig struct {
	Size int `yaml:"size" env:"QR_SIZE" env-default:"290"`
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn must name a database file for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}

	if c.Photos.MaxSize < 0 {
		return errors.New("photos.max_size must not be negative")
	}

	return nil
}

func MustLoad() *Config {
	// a missing .env file is fine
	_ = godotenv.Load()

	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
