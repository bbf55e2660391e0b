package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env        string        `envconfig:"ENV" default:"local"`
	HTTPHost   string        `envconfig:"HTTP_HOST" default:""`
	HTTPPort   string        `envconfig:"HTTP_PORT" default:"3000"`
	LogLevel   string        `envconfig:"LOG_LEVEL" default:"debug"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	SeedFile   string        `envconfig:"SEED_FILE" default:""`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".grounds/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"grounds/"`
	S3Region string `envconfig:"S3_REGION" default:"eu-west-2"`
}

type Env struct {
	BaseEnv
	StorageEnv
}

const namespace = "GROUNDS"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
