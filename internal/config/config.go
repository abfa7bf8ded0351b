// Package config читает настройки сервиса из файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"clouddrive/internal/logger"
	"clouddrive/internal/storage"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Storage  storage.Config `mapstructure:"Storage"`
	Auth     AuthConfig     `mapstructure:"Auth"`
	Quota    QuotaConfig    `mapstructure:"Quota"`
	Log      logger.Config  `mapstructure:"Log"`
}

type ServerConfig struct {
	Port              string        `mapstructure:"Port"`
	ReadTimeout       time.Duration `mapstructure:"ReadTimeout"`
	WriteTimeout      time.Duration `mapstructure:"WriteTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"ShutdownTimeout"`
	AllowRegistration bool          `mapstructure:"AllowRegistration"`
	AllowedOrigins    []string      `mapstructure:"AllowedOrigins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"JWTSecret"`
	TokenTTL  time.Duration `mapstructure:"TokenTTL"`
}

type QuotaConfig struct {
	DefaultLimit  int64 `mapstructure:"DefaultLimit"`
	MaxUploadSize int64 `mapstructure:"MaxUploadSize"`
}

// переменные окружения, перекрывающие файл
var envBindings = map[string]string{
	"Server.Port":                   "HTTP_PORT",
	"Server.AllowRegistration":      "ALLOW_REGISTRATION",
	"Database.Host":                 "DATABASE_HOST",
	"Database.Port":                 "DATABASE_PORT",
	"Database.User":                 "DATABASE_USER",
	"Database.Password":             "DATABASE_PASSWORD",
	"Database.Name":                 "DATABASE_NAME",
	"Database.SSLMode":              "DATABASE_SSLMODE",
	"Storage.Driver":                "STORAGE_DRIVER",
	"Storage.Local.Root":            "STORAGE_LOCAL_ROOT",
	"Storage.S3.Endpoint":           "S3_ENDPOINT",
	"Storage.S3.Region":             "S3_REGION",
	"Storage.S3.AccessKeyID":        "S3_ACCESS_KEY_ID",
	"Storage.S3.SecretAccessKey":    "S3_SECRET_ACCESS_KEY",
	"Storage.S3.Bucket":             "S3_BUCKET",
	"Storage.Minio.Endpoint":        "MINIO_ENDPOINT",
	"Storage.Minio.AccessKeyID":     "MINIO_ACCESS_KEY_ID",
	"Storage.Minio.SecretAccessKey": "MINIO_SECRET_ACCESS_KEY",
	"Storage.Minio.Bucket":          "MINIO_BUCKET",
	"Storage.Minio.UseSSL":          "MINIO_USE_SSL",
	"Auth.JWTSecret":                "JWT_SECRET",
	"Auth.TokenTTL":                 "JWT_TOKEN_TTL",
	"Quota.DefaultLimit":            "QUOTA_DEFAULT_LIMIT",
	"Quota.MaxUploadSize":           "QUOTA_MAX_UPLOAD_SIZE",
	"Log.Level":                     "LOG_LEVEL",
	"Log.Pretty":                    "LOG_PRETTY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.ReadTimeout", 30*time.Second)
	v.SetDefault("Server.WriteTimeout", 10*time.Minute)
	v.SetDefault("Server.ShutdownTimeout", 15*time.Second)
	v.SetDefault("Server.AllowRegistration", true)
	v.SetDefault("Server.AllowedOrigins", []string{"*"})
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Storage.Driver", storage.DriverLocal)
	v.SetDefault("Storage.Local.Root", "./data")
	v.SetDefault("Auth.TokenTTL", 24*time.Hour)
	v.SetDefault("Quota.DefaultLimit", int64(5<<30)) // 5 GB
	v.SetDefault("Quota.MaxUploadSize", int64(0))
	v.SetDefault("Log.Level", "info")
}

// NewConfig читает файл path (может отсутствовать) и переменные окружения
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.Database.Host == "" ||
		c.Database.Port == "" ||
		c.Database.User == "" ||
		c.Database.Name == "" {
		return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth configuration is incomplete: jwt secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token ttl must be positive")
	}
	if c.Quota.DefaultLimit < 0 || c.Quota.MaxUploadSize < 0 {
		return fmt.Errorf("quota limits cannot be negative")
	}

	switch c.Storage.Driver {
	case storage.DriverLocal, storage.DriverS3, storage.DriverMinio:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
