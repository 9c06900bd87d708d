package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Auth struct {
		Secret        string `yaml:"secret"`
		TokenTTL      string `yaml:"token_ttl"`
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"auth"`
	Provider struct {
		VerifyURL string `yaml:"verify_url"`
		// Client holds the public provider configuration handed to the
		// browser (api key, project id, ...). Opaque to the server.
		Client map[string]string `yaml:"client"`
	} `yaml:"provider"`
	Store struct {
		Cooldown     string `yaml:"cooldown"`
		QueryTimeout string `yaml:"query_timeout"`
	} `yaml:"store"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error when every required value arrives via
// the environment; the zero config plus overrides is returned instead.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfEnv(&c.Server.Port, "PORT")
	setIfEnv(&c.Postgres.URL, "DATABASE_URL")
	setIfEnv(&c.Redis.Addr, "REDIS_ADDR")
	setIfEnv(&c.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	setIfEnv(&c.Auth.Secret, "AUTH_SECRET")
	setIfEnv(&c.Auth.TokenTTL, "AUTH_TOKEN_TTL")
	setIfEnv(&c.Auth.AdminEmail, "ADMIN_EMAIL")
	setIfEnv(&c.Auth.AdminPassword, "ADMIN_PASSWORD")
	setIfEnv(&c.Provider.VerifyURL, "PROVIDER_VERIFY_URL")
	setIfEnv(&c.Store.Cooldown, "STORE_COOLDOWN")
	setIfEnv(&c.Store.QueryTimeout, "STORE_QUERY_TIMEOUT")
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
