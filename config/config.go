package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 从环境变量读取
type Config struct {
	Port        string `envconfig:"PORT" default:"3001"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"` // postgres | memory

	DBHost     string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"tool_custody"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPwd  string `envconfig:"REDIS_PASSWORD"`

	WebOrigin  string        `envconfig:"WEB_ORIGIN" default:"http://localhost:5173"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// 管理员口令（主管、库管），逗号分隔
	AdminPasscodes []string `envconfig:"ADMIN_PASSCODES"`

	DefaultTrainerPassword string `envconfig:"DEFAULT_TRAINER_PASSWORD" default:"1234"`
	DefaultCategory        string `envconfig:"DEFAULT_CATEGORY" default:"عام"`
	SeedOnEmpty            bool   `envconfig:"SEED_ON_EMPTY" default:"true"`
	Timezone               string `envconfig:"TIMEZONE" default:"Asia/Riyadh"`
	LogDir                 string `envconfig:"LOG_DIR" default:"logs"`

	LoginMaxAttempts   int           `envconfig:"LOGIN_MAX_ATTEMPTS" default:"5"`
	LoginWindow        time.Duration `envconfig:"LOGIN_WINDOW" default:"15m"`
	StoreCheckInterval time.Duration `envconfig:"STORE_CHECK_INTERVAL" default:"10s"`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiModel    string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	ReportLanguage string `envconfig:"REPORT_LANGUAGE" default:"Arabic"`

	Backup
}

// Backup selects where archived snapshots go.
type Backup struct {
	Driver            string `envconfig:"BACKUP_DRIVER" default:"none"` // none | fs | s3
	Dir               string `envconfig:"BACKUP_DIR" default:"backups"`
	S3Bucket          string `envconfig:"BACKUP_S3_BUCKET"`
	S3Region          string `envconfig:"BACKUP_S3_REGION" default:"us-east-1"`
	S3Endpoint        string `envconfig:"BACKUP_S3_ENDPOINT"`
	S3PathStyle       bool   `envconfig:"BACKUP_S3_PATH_STYLE" default:"false"`
	S3AccessKeyID     string `envconfig:"BACKUP_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"BACKUP_S3_SECRET_ACCESS_KEY"`
}

// LoadEnv 读取 .env（不存在则忽略）
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		Info("no .env file loaded: %v", err)
	}
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}
	codes := c.AdminPasscodes[:0]
	for _, p := range c.AdminPasscodes {
		if s := strings.TrimSpace(p); s != "" {
			codes = append(codes, s)
		}
	}
	c.AdminPasscodes = codes
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return c, fmt.Errorf("load config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return c, nil
}

// DSN for gorm's postgres driver.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// Location falls back to UTC when the zone database lacks Timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		Warning("unknown TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}
