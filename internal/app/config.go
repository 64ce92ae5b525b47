package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/microcart/internal/service/checkout"
)

// Драйверы хранилища корзин.
const (
	StoreDriverBackend  = "backend"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Драйверы почтового транспорта.
const (
	MailDriverBackend  = "backend"
	MailDriverSendGrid = "sendgrid"
	MailDriverMemory   = "memory"
)

// EnvConfigPath — переменная окружения с путём к YAML-конфигу.
const EnvConfigPath = "MICROCART_CONFIG"

const envPrefix = "MICROCART_"

// Config описывает настройки запуска сервиса корзин.
type Config struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`

	BackendURL     string        `yaml:"backend_url"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	BackendRetries int           `yaml:"backend_retries"`

	ShippingCosts           float64 `yaml:"shipping_costs"`
	ShippingCostLimit       float64 `yaml:"shipping_cost_limit"`
	OrderSuccessMailSubject string  `yaml:"order_success_mail_subject"`
	PaymentInfoTemplate     string  `yaml:"precash_payment_info"`

	StoreDriver         string `yaml:"store_driver"`
	PostgresDSN         string `yaml:"postgres_dsn"`
	PostgresAutoMigrate bool   `yaml:"postgres_auto_migrate"`

	MailDriver      string `yaml:"mail_driver"`
	SendGridAPIKey  string `yaml:"sendgrid_api_key"`
	ShopMailAddress string `yaml:"shop_mail_address"`
	ShopName        string `yaml:"shop_name"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	IdentityURL string `yaml:"identity_url"`
}

// DefaultConfig возвращает настройки для локального запуска рядом с backend.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:             ":9090",
		LogLevel:                "info",
		BackendURL:              "http://127.0.0.1:5001",
		BackendTimeout:          10 * time.Second,
		BackendRetries:          3,
		ShippingCosts:           4.9,
		ShippingCostLimit:       50,
		OrderSuccessMailSubject: "Ihre Bestellung",
		StoreDriver:             StoreDriverBackend,
		PostgresAutoMigrate:     true,
		MailDriver:              MailDriverBackend,
		ShopName:                "microcart",
	}
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем YAML-файл
// из MICROCART_CONFIG (если задан), затем переменные MICROCART_*.
func LoadConfig() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if path, ok := lookupEnv(EnvConfigPath); ok && strings.TrimSpace(path) != "" {
		if err := cfg.mergeFile(strings.TrimSpace(path)); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookupEnv(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	textFields := map[string]*string{
		"METRICS_ADDR":               &c.MetricsAddr,
		"LOG_LEVEL":                  &c.LogLevel,
		"BACKEND_URL":                &c.BackendURL,
		"ORDER_SUCCESS_MAIL_SUBJECT": &c.OrderSuccessMailSubject,
		"PRECASH_PAYMENT_INFO":       &c.PaymentInfoTemplate,
		"STORE_DRIVER":               &c.StoreDriver,
		"POSTGRES_DSN":               &c.PostgresDSN,
		"MAIL_DRIVER":                &c.MailDriver,
		"SENDGRID_API_KEY":           &c.SendGridAPIKey,
		"SHOP_MAIL_ADDRESS":          &c.ShopMailAddress,
		"SHOP_NAME":                  &c.ShopName,
		"KAFKA_TOPIC":                &c.KafkaTopic,
		"IDENTITY_URL":               &c.IdentityURL,
	}
	for name, target := range textFields {
		if v, ok := get(name); ok {
			*target = v
		}
	}

	numberFields := map[string]*float64{
		"SHIPPING_COSTS":      &c.ShippingCosts,
		"SHIPPING_COST_LIMIT": &c.ShippingCostLimit,
	}
	for name, target := range numberFields {
		if v, ok := get(name); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
			}
			*target = parsed
		}
	}

	if v, ok := get("BACKEND_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sBACKEND_TIMEOUT: %w", envPrefix, err)
		}
		c.BackendTimeout = parsed
	}
	if v, ok := get("BACKEND_RETRIES"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sBACKEND_RETRIES: %w", envPrefix, err)
		}
		c.BackendRetries = parsed
	}
	if v, ok := get("POSTGRES_AUTO_MIGRATE"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %sPOSTGRES_AUTO_MIGRATE: %w", envPrefix, err)
		}
		c.PostgresAutoMigrate = parsed
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}

	return nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if c.MetricsAddr == "" {
		errs = append(errs, errors.New("metrics_addr is required"))
	}
	if c.BackendRetries < 0 {
		errs = append(errs, errors.New("backend_retries must be >= 0"))
	}
	if c.ShippingCosts < 0 {
		errs = append(errs, errors.New("shipping_costs must be >= 0"))
	}
	if c.ShippingCostLimit < 0 {
		errs = append(errs, errors.New("shipping_cost_limit must be >= 0"))
	}

	switch c.StoreDriver {
	case StoreDriverBackend:
		if c.BackendURL == "" {
			errs = append(errs, errors.New("backend_url is required for backend store"))
		}
	case StoreDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres_dsn is required for postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported store_driver %q", c.StoreDriver))
	}

	switch c.MailDriver {
	case MailDriverBackend:
		if c.BackendURL == "" {
			errs = append(errs, errors.New("backend_url is required for backend mail"))
		}
	case MailDriverSendGrid:
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("sendgrid_api_key is required for sendgrid mail"))
		}
		if c.ShopMailAddress == "" {
			errs = append(errs, errors.New("shop_mail_address is required for sendgrid mail"))
		}
	case MailDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported mail_driver %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

// Checkout возвращает настройки оркестратора корзин.
func (c Config) Checkout() checkout.Config {
	return checkout.Config{
		ShippingCosts:        c.ShippingCosts,
		ShippingCostLimit:    c.ShippingCostLimit,
		OrderSuccessSubject:  c.OrderSuccessMailSubject,
		ConfirmationTemplate: checkout.DefaultConfirmationTemplate,
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
