// Package config предоставялет структуры и функции для загрузки настроек сервиса
// из необязательного YAML-файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек.
// После загрузки не изменяется и передаётся компонентам явно.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"DB_URI" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Cookie                  `yaml:"cookie"`
	PasswordReset           `yaml:"password_reset"`
	SMTP                    `yaml:"smtp"`
	RedisConnection         `yaml:"redis_connection"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Port         string        `yaml:"port" env:"PORT" env-default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	BodyLimit    int64         `yaml:"body_limit" env:"HTTP_BODY_LIMIT" env-default:"10240"`
}

// Address адрес, на котором слушает сервер.
func (s HTTPServer) Address() string {
	return ":" + s.Port
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN" env-default:"2160h"`
}

// Cookie параметры cookie с токеном сессии
type Cookie struct {
	ExpiresInDays int  `yaml:"expires_in_days" env:"COOKIE_EXPIRES_IN" env-default:"90"`
	Secure        bool `yaml:"secure" env:"COOKIE_SECURE" env-default:"true"`
}

// TTL время жизни cookie.
func (c Cookie) TTL() time.Duration {
	return time.Duration(c.ExpiresInDays) * 24 * time.Hour
}

// PasswordReset параметры сброса пароля
type PasswordReset struct {
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_FORGOT_PASS_URL" env-required:"true"`
	// ExposeToken добавляет открытый токен в ответ forgotPassword. Только для тестовых стендов.
	ExposeToken bool `yaml:"expose_token" env:"PASSWORD_RESET_EXPOSE_TOKEN" env-default:"false"`
}

// SMTP структура для настройки почтового сервера
type SMTP struct {
	SMTPHost     string `yaml:"host" env:"SMTP_HOST" env-required:"true"`
	SMTPPort     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser     string `yaml:"user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"password" env:"SMTP_PASS"`
	SMTPFrom     string `yaml:"from" env:"SMTP_FROM" env-default:"no-reply@localhost"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кэш.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"5m"`
}

// Load читает конфигурацию. Сначала подгружается .env, если он есть,
// затем YAML-файл по пути configPath (если путь задан), затем переменные окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: load .env: %w", op, err)
	}

	var cfg Config
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("%s: config file %s: %w", op, configPath, err)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: read config: %w", op, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: read env: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  ReadTimeout: %s\n"+
			"  WriteTimeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"Cookie:\n"+
			"  ExpiresInDays: %d\n"+
			"SMTP:\n"+
			"  Host: %s:%d\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n",
		c.Env,
		c.Address(),
		c.ReadTimeout,
		c.WriteTimeout,
		c.IdleTimeout,
		c.TokenTTL,
		c.ExpiresInDays,
		c.SMTPHost,
		c.SMTPPort,
		c.AddressRedis,
		c.DB,
	)
}
