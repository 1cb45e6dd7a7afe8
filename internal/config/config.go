// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек бота.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	Telegram                `yaml:"telegram"`
	Shop                    `yaml:"shop"`
	MetricsServer           `yaml:"metrics_server"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Telegram структура с параметрами транспорта мессенджера.
// BotToken без значения запуск невозможен — это единственное
// фатальное условие старта.
type Telegram struct {
	BotToken    string        `yaml:"bot_token" env:"BOT_TOKEN"`
	OwnerID     int64         `yaml:"owner_id" env:"OWNER_ID"`
	PollTimeout time.Duration `yaml:"poll_timeout" env-default:"30s"`
}

// Shop структура с параметрами продажи профилей.
type Shop struct {
	Price             int    `yaml:"price" env-default:"50"`
	BkashNumber       string `yaml:"bkash_number"`
	NagadNumber       string `yaml:"nagad_number"`
	ReferralThreshold int    `yaml:"referral_threshold" env-default:"20"`
	OCREnabled        bool   `yaml:"ocr_enabled" env-default:"false"`
	OCRServiceURL     string `yaml:"ocr_service_url"`
	OCRAutoApprove    bool   `yaml:"ocr_auto_approve" env-default:"false"`
	ChannelUsername   string `yaml:"channel_username"`
}

// MetricsServer структура для служебного HTTP-сервера (метрики и health).
type MetricsServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":9090"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustLoad функция для загрузки конфига; путь берётся из CONFIG_PATH.
// Завершает процесс, если конфиг не читается или не задан токен бота.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if cfg.BotToken == "" {
		log.Fatal("bot token is not set")
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"Telegram:\n"+
			"  OwnerID: %d\n"+
			"  PollTimeout: %s\n"+
			"Shop:\n"+
			"  Price: %d\n"+
			"  ReferralThreshold: %d\n"+
			"  OCREnabled: %t\n"+
			"MetricsServer:\n"+
			"  Address: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.DB,
		c.RabbitMQURL,
		c.OwnerID,
		c.PollTimeout,
		c.Price,
		c.ReferralThreshold,
		c.OCREnabled,
		c.AddressHTTP,
	)
}
