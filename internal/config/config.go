package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// BotsDir is the root directory holding one subdirectory per bot
	// (config.yml, prompt.yml, data/*.yml).
	BotsDir string `envconfig:"BOTS_DIR" default:"bots"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`

	// S3 snapshot storage for embedding export/import
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"botsmith-snapshots"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// WarmupInterval controls how often the cache warmer re-checks for bots
	// that are not yet cached. Zero disables the warmer.
	WarmupInterval time.Duration `envconfig:"WARMUP_INTERVAL" default:"60s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BOTSMITH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
