package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // update workers, keyed by customer
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"` // abandoned sell sessions expire after this
}

type ScenariosConfig struct {
	Dir string `yaml:"dir"`
}

type PaymentConfig struct {
	AnyPay struct {
		MerchantID string `yaml:"merchant_id"`
		Secret     string `yaml:"secret"`
		BaseURL    string `yaml:"base_url"`
		Currency   string `yaml:"currency"`
	} `yaml:"anypay"`
	Card struct {
		Number string `yaml:"number"`
	} `yaml:"card"`
}

type APIConfig struct {
	Port           int      `yaml:"port"`
	CallbackPath   string   `yaml:"callback_path"`
	CallbackMethod string   `yaml:"callback_method"`
	AllowedIPs     []string `yaml:"allowed_ips"`
	TrustProxy     bool     `yaml:"trust_proxy"` // read client IP from X-Real-IP
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type OrdersConfig struct {
	ExpireAfter   time.Duration `yaml:"expire_after"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Scenarios ScenariosConfig `yaml:"scenarios"`
	Payment   PaymentConfig   `yaml:"payment"`
	API       APIConfig       `yaml:"api"`
	Admin     AdminConfig     `yaml:"admin"`
	Orders    OrdersConfig    `yaml:"orders"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Provider callback sources.
var defaultAllowedIPs = []string{"185.162.128.38", "185.162.128.39", "185.162.128.88"}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates required fields.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, time.Hour)
	cfg.Session.TTL = normalizeTTL(cfg.Session.TTL, 24*time.Hour)
	if cfg.Scenarios.Dir == "" {
		cfg.Scenarios.Dir = "extras/scenarios"
	}
	if cfg.Payment.AnyPay.BaseURL == "" {
		cfg.Payment.AnyPay.BaseURL = "https://anypay.io/merchant"
	}
	if cfg.Payment.AnyPay.Currency == "" {
		cfg.Payment.AnyPay.Currency = "RUB"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8443
	}
	if cfg.API.CallbackPath == "" {
		cfg.API.CallbackPath = "/api/payment/anypay"
	}
	if cfg.API.CallbackMethod == "" {
		cfg.API.CallbackMethod = "POST"
	}
	if len(cfg.API.AllowedIPs) == 0 {
		cfg.API.AllowedIPs = append([]string(nil), defaultAllowedIPs...)
	}
	cfg.Admin.TokenTTL = normalizeTTL(cfg.Admin.TokenTTL, 30*time.Minute)
	cfg.Orders.ExpireAfter = normalizeTTL(cfg.Orders.ExpireAfter, 48*time.Hour)
	cfg.Orders.SweepInterval = normalizeTTL(cfg.Orders.SweepInterval, time.Hour)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	// The sweeper must not cancel an order whose session can still sell it.
	if cfg.Orders.ExpireAfter < cfg.Session.TTL {
		return nil, fmt.Errorf("orders.expire_after (%s) must not be shorter than session.ttl (%s)",
			cfg.Orders.ExpireAfter, cfg.Session.TTL)
	}
	return &cfg, nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
