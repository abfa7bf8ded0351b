package storage

import (
	"fmt"

	"github.com/spf13/afero"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
	DriverMinio = "minio"
)

type Config struct {
	Driver string      `mapstructure:"Driver"`
	Local  LocalConfig `mapstructure:"Local"`
	S3     S3Config    `mapstructure:"S3"`
	Minio  MinioConfig `mapstructure:"Minio"`
}

type LocalConfig struct {
	Root string `mapstructure:"Root"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"Endpoint"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Region          string `mapstructure:"Region"`
	UseSSL          bool   `mapstructure:"UseSSL"`
}

// New создает хранилище блобов по выбранному драйверу
func New(cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		if cfg.Local.Root == "" {
			return nil, fmt.Errorf("local storage root is required")
		}
		return NewLocal(afero.NewOsFs(), cfg.Local.Root)
	case DriverS3:
		return NewS3(cfg.S3)
	case DriverMinio:
		return NewMinio(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
