package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the file layout of config/config.yaml.
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`
	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Mongo struct {
		URI      string        `yaml:"uri"`
		Database string        `yaml:"database"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"mongo"`
	Kafka struct {
		Brokers string `yaml:"brokers"` // comma-separated, empty disables the analytics sink
		Topic   string `yaml:"topic"`
	} `yaml:"kafka"`
	Push          Gateway `yaml:"push"`
	SMS           Gateway `yaml:"sms"`
	WhatsApp      Gateway `yaml:"whatsapp"`
	Notifications struct {
		Locale string        `yaml:"locale"`
		MaxAge time.Duration `yaml:"max_age"`
	} `yaml:"notifications"`
	Analytics struct {
		Currency string `yaml:"currency"`
	} `yaml:"analytics"`
	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
}

// Gateway holds the endpoint and credentials of one outbound provider.
type Gateway struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Sender  string        `yaml:"sender"`
	Timeout time.Duration `yaml:"timeout"`
}

// Configured reports whether the gateway has both an endpoint and credentials.
func (g Gateway) Configured() bool {
	return g.URL != "" && g.APIKey != ""
}

// LoadFromFile loads config from a YAML file, applies env overrides and defaults, and validates required fields.
// A .env file next to the working directory is loaded first when present.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes and runs the same override/default/validate chain as LoadFromFile.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnv lets secrets live outside the YAML file.
func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	override(&cfg.Database.Password, "DB_PASSWORD")
	override(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	override(&cfg.Mongo.URI, "MONGO_URI")
	override(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	override(&cfg.Push.APIKey, "PUSH_ACCESS_TOKEN")
	override(&cfg.SMS.APIKey, "SMS_API_KEY")
	override(&cfg.WhatsApp.APIKey, "WHATSAPP_API_KEY")
}

// expoHost is the Expo push service host used when push.url is unset.
const expoHost = "https://exp.host"

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Mongo
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "brew"
	}
	if cfg.Mongo.Timeout == 0 {
		cfg.Mongo.Timeout = 10 * time.Second
	}

	// Kafka
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "order_analytics"
	}

	// Gateways
	if cfg.Push.URL == "" {
		cfg.Push.URL = expoHost
	}
	for _, g := range []*Gateway{&cfg.Push, &cfg.SMS, &cfg.WhatsApp} {
		if g.Timeout == 0 {
			g.Timeout = 10 * time.Second
		}
	}

	// Notifications
	if cfg.Notifications.Locale == "" {
		cfg.Notifications.Locale = "en"
	}
	if cfg.Notifications.MaxAge == 0 {
		cfg.Notifications.MaxAge = 10 * time.Minute
	}

	// Analytics
	if cfg.Analytics.Currency == "" {
		cfg.Analytics.Currency = "KZT"
	}

	// HTTP
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database (name) is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Notifications
	if c.Notifications.MaxAge < 0 {
		problems = append(problems, "notifications.max_age must be >= 0")
	}
	if len(c.Analytics.Currency) != 3 {
		problems = append(problems, "analytics.currency must be a 3-letter ISO code")
	}

	// HTTP
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		problems = append(problems, "http.port must be in 1..65535")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// KafkaBrokers splits the comma-separated broker list.
func (c *Config) KafkaBrokers() []string {
	var out []string
	for _, b := range strings.Split(c.Kafka.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
