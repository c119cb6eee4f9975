package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting of the service.
type Config struct {
	AppHost     string `env:"APP_HOST" envDefault:"0.0.0.0"`
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"*"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBDatabase string `env:"DB_DATABASE" envDefault:"eventpilot"`
	DBUsername string `env:"DB_USERNAME" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL         time.Duration `env:"JWT_TTL" envDefault:"720h"`
	ValetJWTSecret string        `env:"VALET_JWT_SECRET"`

	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendBaseURL string `env:"RESEND_BASE_URL" envDefault:"https://api.resend.com"`
	FromEmail     string `env:"FROM_EMAIL"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-lite"`

	AWSRegion               string  `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL          string  `env:"AWS_ENDPOINT_URL"`
	S3Bucket                string  `env:"AWS_S3_BUCKET"`
	CloudFrontURL           string  `env:"AWS_CLOUDFRONT_URL"`
	GalleryBucket           string  `env:"AWS_GALLERY_S3_BUCKET"`
	GalleryCloudFrontURL    string  `env:"AWS_GALLERY_CLOUDFRONT_URL"`
	RekognitionRegion       string  `env:"AWS_REKOGNITION_REGION" envDefault:"us-east-1"`
	GalleryWorkers          int     `env:"GALLERY_WORKERS" envDefault:"4"`
	GalleryClusterThreshold float32 `env:"GALLERY_CLUSTER_THRESHOLD" envDefault:"90"`
	GalleryMatchThreshold   float32 `env:"GALLERY_MATCH_THRESHOLD" envDefault:"80"`

	SuperAdminEmail    string `env:"SUPER_ADMIN_EMAIL"`
	SuperAdminPassword string `env:"SUPER_ADMIN_PASSWORD"`
}

// Load reads .env when present and parses the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.ValetJWTSecret == "" {
		cfg.ValetJWTSecret = cfg.JWTSecret
	}
	if cfg.GalleryWorkers < 1 {
		cfg.GalleryWorkers = 1
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUsername, c.DBPassword, c.DBDatabase, c.DBSSLMode)
}

func (c *Config) ListenAddr() string {
	return c.AppHost + ":" + c.AppPort
}

func (c *Config) EmailConfigured() bool {
	return c.ResendAPIKey != "" && c.FromEmail != ""
}

func (c *Config) AIConfigured() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) StorageConfigured() bool {
	return c.S3Bucket != ""
}

func (c *Config) GalleryConfigured() bool {
	return c.GalleryBucket != ""
}
