// Package config loads splix settings and validates split requests.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/PhantomInTheWire/splix/pkg/kube"
	"github.com/PhantomInTheWire/splix/pkg/output"
	"github.com/PhantomInTheWire/splix/pkg/storage"
)

// Config holds settings that rarely change between runs. Flags override it.
type Config struct {
	OutputDir   string `yaml:"output_dir"`
	Workers     int    `yaml:"workers"`
	TileWorkers int    `yaml:"tile_workers"`
	Quality     int    `yaml:"quality"`
	AutoOrient  bool   `yaml:"auto_orient"`
	LogLevel    string `yaml:"log_level"`

	Storage storage.MinioConfig `yaml:"storage"`
	Kube    kube.JobConfig      `yaml:"kube"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OutputDir:   output.DefaultDir,
		TileWorkers: 1,
		Quality:     95,
		LogLevel:    "warn",
		Storage:     storage.MinioConfig{Region: "us-east-1"},
		Kube:        kube.JobConfig{Namespace: "default", BackoffLimit: 1},
	}
}

// Load reads path over the defaults, then applies SPLIX_* environment
// variables. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (c *Config) applyEnv() {
	c.OutputDir = getEnv("SPLIX_OUTPUT_DIR", c.OutputDir)
	c.Workers = getEnvInt("SPLIX_WORKERS", c.Workers)
	c.TileWorkers = getEnvInt("SPLIX_TILE_WORKERS", c.TileWorkers)
	c.Quality = getEnvInt("SPLIX_QUALITY", c.Quality)
	c.AutoOrient = getEnvBool("SPLIX_AUTO_ORIENT", c.AutoOrient)
	c.LogLevel = getEnv("SPLIX_LOG_LEVEL", c.LogLevel)

	c.Storage.Endpoint = getEnv("SPLIX_S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Region = getEnv("SPLIX_S3_REGION", c.Storage.Region)
	c.Storage.AccessKey = getEnv("SPLIX_S3_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("SPLIX_S3_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("SPLIX_S3_BUCKET", c.Storage.Bucket)
	c.Storage.Prefix = getEnv("SPLIX_S3_PREFIX", c.Storage.Prefix)

	c.Kube.Namespace = getEnv("SPLIX_KUBE_NAMESPACE", c.Kube.Namespace)
	c.Kube.Image = getEnv("SPLIX_KUBE_IMAGE", c.Kube.Image)
	c.Kube.BucketURL = getEnv("SPLIX_KUBE_BUCKET_URL", c.Kube.BucketURL)
	c.Kube.CredentialsSecret = getEnv("SPLIX_KUBE_CREDENTIALS_SECRET", c.Kube.CredentialsSecret)
}
