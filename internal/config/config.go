// Package config carga la configuración del gateway desde config.yaml con
// overrides por variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL pública del gateway (arma los redirect_uri de OAuth).
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Storage struct {
		// DSN PostgreSQL. Vacío = remember-me deshabilitado (degradado).
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
			OpTimeout       string `yaml:"op_timeout"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Sessions struct {
		// kind: redis | memory
		Kind  string `yaml:"kind"`
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"sessions"`

	Remember struct {
		Days          int    `yaml:"days"`
		SweepInterval string `yaml:"sweep_interval"`
		CookieName    string `yaml:"cookie_name"`
	} `yaml:"remember"`

	State struct {
		// Secret HMAC para el JWT de state (obligatorio).
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"state"`

	Providers struct {
		Google struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
		} `yaml:"google"`
		GitHub struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
		} `yaml:"github"`
	} `yaml:"providers"`

	SMTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
		From string `yaml:"from"`
	} `yaml:"smtp"`
}

// Load lee el YAML (si path existe), aplica defaults y pisa con ENV.
// Un path vacío arranca solo con defaults + ENV.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Sessions.Kind == "" {
		c.Sessions.Kind = "memory"
	}
	if c.Sessions.TTL == "" {
		c.Sessions.TTL = "12h"
	}
	if c.Remember.Days == 0 {
		c.Remember.Days = 30
	}
	if c.Remember.SweepInterval == "" {
		c.Remember.SweepInterval = "12h"
	}
	if c.Remember.CookieName == "" {
		c.Remember.CookieName = "hg_remember"
	}
	if c.State.Issuer == "" {
		c.State.Issuer = "hellogate"
	}
	if c.Storage.Postgres.MaxOpenConns == 0 {
		c.Storage.Postgres.MaxOpenConns = 5
	}
	if c.Storage.Postgres.OpTimeout == "" {
		c.Storage.Postgres.OpTimeout = "30s"
	}
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}
	if v, ok := getEnvStr("POSTGRES_OP_TIMEOUT"); ok {
		c.Storage.Postgres.OpTimeout = v
	}
	if v, ok := getEnvStr("SESSIONS_KIND"); ok {
		c.Sessions.Kind = v
	}
	if v, ok := getEnvStr("SESSIONS_TTL"); ok {
		c.Sessions.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Sessions.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Sessions.Redis.DB = v
	}
	if v, ok := getEnvInt("REMEMBER_DAYS"); ok {
		c.Remember.Days = v
	}
	if v, ok := getEnvStr("REMEMBER_SWEEP_INTERVAL"); ok {
		c.Remember.SweepInterval = v
	}
	if v, ok := getEnvStr("STATE_SECRET"); ok {
		c.State.Secret = v
	}
	if v, ok := getEnvStr("STATE_ISSUER"); ok {
		c.State.Issuer = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("GITHUB_CLIENT_ID"); ok {
		c.Providers.GitHub.ClientID = v
	}
	if v, ok := getEnvStr("GITHUB_CLIENT_SECRET"); ok {
		c.Providers.GitHub.ClientSecret = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USER"); ok {
		c.SMTP.User = v
	}
	if v, ok := getEnvStr("SMTP_PASS"); ok {
		c.SMTP.Pass = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
}

func (c *Config) Validate() error {
	if c.State.Secret == "" {
		return fmt.Errorf("config: state.secret is required (env STATE_SECRET)")
	}
	if c.Remember.Days < 0 {
		return fmt.Errorf("config: remember.days must be >= 0")
	}
	for _, d := range []struct{ name, val string }{
		{"sessions.ttl", c.Sessions.TTL},
		{"remember.sweep_interval", c.Remember.SweepInterval},
		{"storage.postgres.op_timeout", c.Storage.Postgres.OpTimeout},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}
	return nil
}

// IsProd reporta si corremos en producción (cookies Secure, logs JSON).
func (c *Config) IsProd() bool { return strings.ToLower(c.App.Env) == "prod" }

// SessionTTL duración parseada (Validate ya garantizó el formato).
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Sessions.TTL)
	return d
}

func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Remember.SweepInterval)
	return d
}

func (c *Config) StorageOpTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Storage.Postgres.OpTimeout)
	return d
}

func (c *Config) ConnMaxLifetime() time.Duration {
	if c.Storage.Postgres.ConnMaxLifetime == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime)
	if err != nil {
		return 0
	}
	return d
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
