package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "NIAGA"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "NIAGA_APP_ENV"
	EnvDBDSN  = "NIAGA_DB_DSN"
	EnvDBHost = "NIAGA_DB_HOST"
	EnvDBUser = "NIAGA_DB_USER"
	EnvDBName = "NIAGA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	Cache CacheConfig
	Doku  DokuConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NIAGA_APP_ENV" required:"true"`
	Port         string `envconfig:"NIAGA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NIAGA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NIAGA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NIAGA_DB_DSN"`
	Driver string `envconfig:"NIAGA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NIAGA_DB_HOST"`
	LegacyPort     int    `envconfig:"NIAGA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NIAGA_DB_USER"`
	LegacyPassword string `envconfig:"NIAGA_DB_PASSWORD"`
	LegacyName     string `envconfig:"NIAGA_DB_NAME"`
	LegacySSLMode  string `envconfig:"NIAGA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NIAGA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NIAGA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NIAGA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NIAGA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"NIAGA_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NIAGA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NIAGA_REDIS_ADDR"`
	Password     string        `envconfig:"NIAGA_REDIS_PASSWORD"`
	DB           int           `envconfig:"NIAGA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NIAGA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NIAGA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NIAGA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NIAGA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NIAGA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NIAGA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NIAGA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NIAGA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CacheConfig struct {
	TTL time.Duration `envconfig:"NIAGA_CACHE_TTL" default:"30m"`
}

// DokuConfig holds credentials for the payment gateway.
type DokuConfig struct {
	ClientID       string        `envconfig:"NIAGA_DOKU_CLIENT_ID" required:"true"`
	SecretKey      string        `envconfig:"NIAGA_DOKU_SECRET_KEY" required:"true"`
	BaseURL        string        `envconfig:"NIAGA_DOKU_BASE_URL" default:"https://api-sandbox.doku.com"`
	RequestTimeout time.Duration `envconfig:"NIAGA_DOKU_REQUEST_TIMEOUT" default:"15s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
