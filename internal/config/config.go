// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env-default:"local"`
	HTTPServer      `yaml:"http_server"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	RabbitMQ        `yaml:"rabbitmq"`
	SMTP            `yaml:"smtp"`
	JWTToken        `yaml:"jwttoken"`
	Admin           `yaml:"admin"`
	Requisites      `yaml:"requisites"`
	Sweep           `yaml:"sweep"`
	Probe           `yaml:"probe"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"localhost:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Storage структура для выбора и настройки хранилища.
// Backend принимает значения "file" (JSON-документ на диске)
// или "postgres" (документ в одной строке jsonb).
type Storage struct {
	Backend                 string `yaml:"backend" env-default:"file"`
	FilePath                string `yaml:"file_path" env-default:"users_db.json"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
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

// RabbitMQ структура для настройки подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
}

// SMTP структура для настройки почтового транспорта воркера доставки
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Admin единственная привилегированная учётная запись.
// PasswordHash — bcrypt-хэш пароля для входа по HTTP.
type Admin struct {
	AdminID      string `yaml:"admin_id"`
	AdminEmail   string `yaml:"admin_email"`
	PasswordHash string `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
}

// Requisites реквизиты для перевода, попадают в платёжную инструкцию
type Requisites struct {
	Card   string `yaml:"card"`
	Holder string `yaml:"holder"`
}

// Sweep настройки периодического отзыва истёкших доступов
type Sweep struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1h"`
}

// Probe настройки автоматической проверки платежей
type Probe struct {
	ProbeDir      string        `yaml:"probe_dir" env-default:"payments"`
	ProbeInterval time.Duration `yaml:"probe_interval" env-default:"1m"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
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
	return &cfg
}
