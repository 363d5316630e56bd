package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	DB      DBConfig
	Storage StorageConfig
	MinIO   MinIOConfig
	S3      S3Config
	Server  ServerConfig
	Probe   ProbeConfig
	Feed    FeedConfig
	Log     LogConfig
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string `env:"DB_DRIVER" env-default:"postgres"`
	Host       string `env:"DB_HOST" env-default:"localhost"`
	Port       string `env:"DB_PORT" env-default:"5432"`
	User       string `env:"DB_USER" env-default:"incubrix"`
	Password   string `env:"DB_PASSWORD" env-default:"incubrix_secret"`
	Name       string `env:"DB_NAME" env-default:"incubrix_cms"`
	SSLMode    string `env:"DB_SSLMODE" env-default:"disable"`
	SQLitePath string `env:"DB_SQLITE_PATH" env-default:"incubrix_cms.db"`
}

type StorageConfig struct {
	// Backend is "minio", "s3" or "memory".
	Backend string `env:"STORAGE_BACKEND" env-default:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" env-default:"incubrix"`
	SecretKey string `env:"MINIO_SECRET_KEY" env-default:"incubrix_secret"`
	Bucket    string `env:"MINIO_BUCKET" env-default:"incubrix-cms"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:"incubrix-cms"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
}

type ServerConfig struct {
	Port           string `env:"SERVER_PORT" env-default:"3001"`
	MaxUploadBytes int    `env:"MAX_UPLOAD_BYTES" env-default:"524288000"`
	// CORSOrigins is a comma separated allow list for the admin API.
	CORSOrigins    string `env:"CORS_ORIGINS" env-default:"*"`
}

type ProbeConfig struct {
	Enabled     bool          `env:"PROBE_ENABLED" env-default:"true"`
	FFProbePath string        `env:"FFPROBE_PATH" env-default:"ffprobe"`
	Timeout     time.Duration `env:"PROBE_TIMEOUT" env-default:"30s"`
}

type FeedConfig struct {
	// OutputDir receives rss.xml, feed.xml and feed.json on every
	// regeneration when set.
	OutputDir string `env:"FEED_OUTPUT_DIR"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return &cfg, nil
}

func (c DBConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
