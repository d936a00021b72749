package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
database:
  user: brew
  password: secret
  database: ledger
rabbitmq:
  user: guest
  password: guest
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("database defaults = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.RabbitMQ.Port != 5672 {
		t.Errorf("rabbitmq.port = %d", cfg.RabbitMQ.Port)
	}
	if cfg.Notifications.MaxAge != 10*time.Minute {
		t.Errorf("notifications.max_age = %v", cfg.Notifications.MaxAge)
	}
	if cfg.Kafka.Topic != "order_analytics" {
		t.Errorf("kafka.topic = %q", cfg.Kafka.Topic)
	}
	if cfg.SMS.Configured() {
		t.Error("sms gateway should not be configured without credentials")
	}
	if len(cfg.KafkaBrokers()) != 0 {
		t.Errorf("brokers = %v, want none", cfg.KafkaBrokers())
	}
}

func TestParseFullFile(t *testing.T) {
	raw := minimal + `
kafka:
  brokers: "k1:9092, k2:9092,"
sms:
  url: https://sms.example.com
  api_key: key
  sender: BREW
notifications:
  locale: ru
  max_age: 5m
analytics:
  currency: USD
http:
  port: 8081
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cfg.KafkaBrokers(); len(got) != 2 || got[1] != "k2:9092" {
		t.Errorf("brokers = %v", got)
	}
	if !cfg.SMS.Configured() || cfg.SMS.Sender != "BREW" {
		t.Errorf("sms = %+v", cfg.SMS)
	}
	if cfg.Notifications.Locale != "ru" || cfg.Notifications.MaxAge != 5*time.Minute {
		t.Errorf("notifications = %+v", cfg.Notifications)
	}
	if cfg.HTTP.Port != 8081 || cfg.Analytics.Currency != "USD" {
		t.Errorf("http/analytics = %d/%s", cfg.HTTP.Port, cfg.Analytics.Currency)
	}
}

func TestParseCollectsProblems(t *testing.T) {
	_, err := Parse([]byte("database:\n  port: 70000\nanalytics:\n  currency: EURO\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want validation error")
	}
	for _, want := range []string{"database.port", "database.user", "rabbitmq.user", "analytics.currency"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("WHATSAPP_API_KEY", "wa-key")

	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("database.password = %q", cfg.Database.Password)
	}
	if cfg.WhatsApp.APIKey != "wa-key" {
		t.Errorf("whatsapp.api_key = %q", cfg.WhatsApp.APIKey)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadFromFile() on missing file: error = nil")
	}
}
