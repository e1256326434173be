// Package config предоставляет структуры и функцию для загрузки конфигурации сервиса.
//
// Конфигурация читается из YAML-файла (путь в CONFIG_PATH), секреты
// переопределяются переменными окружения. Перед чтением подгружается .env, если он есть.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Auth                    `yaml:"auth"`
	Stripe                  `yaml:"stripe"`
	Razorpay                `yaml:"razorpay"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user"`
	RedisDB          int           `yaml:"db"`
	RedisMaxRetries  int           `yaml:"max_retries" env-default:"3"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	RedisTimeout     time.Duration `yaml:"timeoutredis" env-default:"3s"`
	AccountCacheTTL  time.Duration `yaml:"account_cache_ttl" env-default:"5m"`
}

// Auth настройки проверки токенов провайдера идентификации и доступа операторов.
type Auth struct {
	JWTSecretKey   string  `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	JWTIssuer      string  `yaml:"jwt_issuer"`
	AdminTokenHash string  `yaml:"admin_token_hash" env:"ADMIN_TOKEN_HASH"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env-default:"5"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env-default:"10"`
}

// Stripe настройки оформления подписок через Stripe Checkout.
type Stripe struct {
	StripeSecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `yaml:"success_url"`
	StripeCancelURL     string `yaml:"cancel_url"`
	StripePriceStarter  string `yaml:"price_starter" env:"STRIPE_PRICE_STARTER"`
	StripePricePro      string `yaml:"price_pro" env:"STRIPE_PRICE_PRO"`
	StripePriceAgency   string `yaml:"price_agency" env:"STRIPE_PRICE_AGENCY"`
}

// Razorpay настройки заказов и проверки платежей Razorpay.
type Razorpay struct {
	RazorpayKeyID         string `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	RazorpayCurrency      string `yaml:"currency" env-default:"INR"`
	PriceStarter          int64  `yaml:"price_starter" env-default:"49900"`
	PricePro              int64  `yaml:"price_pro" env-default:"99900"`
	PriceAgency           int64  `yaml:"price_agency" env-default:"249900"`
	FirstPaymentDiscount  int    `yaml:"first_payment_discount_percent" env-default:"50"`
}

// RabbitMQ настройки брокера уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP настройки отправки писем.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
	SMTPFrom string `yaml:"from"`
}

// Scheduler настройки напоминаний об окончании плана.
type Scheduler struct {
	ReminderDays     int           `yaml:"reminder_days" env-default:"3"`
	ReminderInterval time.Duration `yaml:"reminder_interval" env-default:"24h"`
}

// ErrConfigPathMissing возвращается, если CONFIG_PATH не задан.
var ErrConfigPathMissing = errors.New("CONFIG_PATH is not set")

// Load читает конфигурацию из файла path с переопределением из окружения.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrConfigPathMissing
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// MustLoad загружает .env (если есть) и конфиг по CONFIG_PATH, завершая процесс при ошибке.
func MustLoad() *Config {
	_ = godotenv.Load()

	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// String возвращает конфигурацию без секретов, пригодную для логов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"Redis: %s (db %d)\n"+
			"HTTPServer: %s timeout=%s idle=%s\n"+
			"RabbitMQ configured: %t\n"+
			"Stripe configured: %t\n"+
			"Razorpay configured: %t\n",
		c.Env,
		c.MigrationsPath,
		c.RedisAddress, c.RedisDB,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		c.RabbitMQURL != "",
		c.StripeSecretKey != "",
		c.RazorpayKeyID != "",
	)
}
