package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config структура конфигурации
type Config struct {
	AppEnv           string        `env:"APP_ENV" env-default:"production"`
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTTTL           time.Duration `env:"JWT_TTL" env-default:"168h"`
	AdminJWTTTL      time.Duration `env:"ADMIN_JWT_TTL" env-default:"8h"`
	// ClientURL используется в ссылках писем
	ClientURL string `env:"CLIENT_URL" env-default:"http://localhost:3000"`

	// DatabaseURL имеет приоритет над PG* переменными
	DatabaseURL        string `env:"DATABASE_URL"`
	DatabaseConfig     DatabaseConfig
	HTTPConfig         HTTPConfig
	CloudinaryConfig   CloudinaryConfig
	SMTPConfig         SMTPConfig
	NotificationConfig NotificationConfig
	RateLimitConfig    RateLimitConfig
	LogConfig          LogConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `env:"PGHOST" env-default:"localhost"`
	Port     string `env:"PGPORT" env-default:"5432"`
	User     string `env:"PGUSER" env-default:"skillswap"`
	Password string `env:"PGPASSWORD" env-default:"skillswap"`
	Name     string `env:"PGDATABASE" env-default:"skillswap"`
	SSLMode  string `env:"PGSSLMODE" env-default:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" env-default:"10"`
	MinConns int32  `env:"PG_MIN_CONNS" env-default:"2"`
	// AutoMigrate применяет миграции при старте
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// HTTPConfig содержит настройки HTTP серверов
type HTTPConfig struct {
	Port        string   `env:"PORT" env-default:"8080"`
	OpsPort     string   `env:"OPS_PORT" env-default:"9090"`
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	BodyLimitMB int      `env:"BODY_LIMIT_MB" env-default:"6"`
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey       string `env:"CLOUDINARY_API_KEY"`
	APISecret    string `env:"CLOUDINARY_API_SECRET"`
	UploadPreset string `env:"CLOUDINARY_UPLOAD_PRESET" env-default:"skill_swap"`
	UploadFolder string `env:"CLOUDINARY_UPLOAD_FOLDER" env-default:"profile-photos"`
}

// SMTPConfig содержит настройки почты
type SMTPConfig struct {
	Host     string `env:"EMAIL_HOST"`
	Port     int    `env:"EMAIL_PORT" env-default:"587"`
	Username string `env:"EMAIL_USER"`
	Password string `env:"EMAIL_PASS"`
	From     string `env:"EMAIL_FROM" env-default:"Skill Swap Platform <noreply@skillswap.app>"`
}

// Enabled сообщает, настроена ли отправка почты
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// NotificationConfig задает хранение уведомлений
type NotificationConfig struct {
	RetentionDays int    `env:"NOTIFICATION_RETENTION_DAYS" env-default:"30"`
	SweepSpec     string `env:"NOTIFICATION_SWEEP_SPEC" env-default:"@daily"`
}

// RateLimitConfig задает ограничения для маршрутов входа
type RateLimitConfig struct {
	AuthPerSecond float64 `env:"AUTH_RATE_PER_SEC" env-default:"5"`
	AuthBurst     int     `env:"AUTH_RATE_BURST" env-default:"10"`
}

// LogConfig задает уровень и формат логов
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// IsDevelopment сообщает, что приложение запущено локально
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// DSN возвращает строку подключения к базе данных
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	db := c.DatabaseConfig
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode)
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.NotificationConfig.RetentionDays < 1 {
		return errors.New("NOTIFICATION_RETENTION_DAYS must be positive")
	}
	return nil
}

// Read читает конфигурацию из переменных окружения без .env
func Read() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig загружает переменные из .env
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	cfg, err := Read()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	return cfg
}

// SetupLogger настраивает logrus по конфигурации
func SetupLogger(cfg LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
