package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "FILESHARE_"

type envBinding struct {
	name  string
	apply func(c *Config, v string) error
}

func envString(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func envDuration(dst func(c *Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

func envInt(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func envBool(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func envList(dst func(c *Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = splitList(v)
		return nil
	}
}

var envBindings = []envBinding{
	{"ADDRESS", envString(func(c *Config) *string { return &c.EndpointAddr })},
	{"DATABASE_DSN", envString(func(c *Config) *string { return &c.DatabaseDSN })},
	{"SECRET_KEY", envString(func(c *Config) *string { return &c.SecretKey })},
	{"ACCESS_TOKEN_TTL", envDuration(func(c *Config) *time.Duration { return &c.AccessTokenValidityDuration })},
	{"REFRESH_TOKEN_TTL", envDuration(func(c *Config) *time.Duration { return &c.RefreshTokenValidityDuration })},
	{"STORAGE", envString(func(c *Config) *string { return &c.StorageBackend })},
	{"S3_ROOT_USER", envString(func(c *Config) *string { return &c.S3RootUser })},
	{"S3_ROOT_PASSWORD", envString(func(c *Config) *string { return &c.S3RootPassword })},
	{"S3_BUCKET", envString(func(c *Config) *string { return &c.S3Bucket })},
	{"S3_REGION", envString(func(c *Config) *string { return &c.S3Region })},
	{"S3_ENDPOINT", envString(func(c *Config) *string { return &c.S3BaseEndpoint })},
	{"S3_USE_SSL", envBool(func(c *Config) *bool { return &c.S3UseSSL })},
	{"PRESIGN_DOWNLOADS", envBool(func(c *Config) *bool { return &c.PresignDownloads })},
	{"PRESIGN_TTL", envDuration(func(c *Config) *time.Duration { return &c.PresignTTL })},
	{"REDIS_ADDR", envString(func(c *Config) *string { return &c.RedisAddr })},
	{"REDIS_PASSWORD", envString(func(c *Config) *string { return &c.RedisPassword })},
	{"REDIS_DB", envInt(func(c *Config) *int { return &c.RedisDB })},
	{"CACHE_TTL", envDuration(func(c *Config) *time.Duration { return &c.FileListCacheTTL })},
	{"WORKER_CONCURRENCY", envInt(func(c *Config) *int { return &c.WorkerConcurrency })},
	{"TOKEN_PURGE_SPEC", envString(func(c *Config) *string { return &c.TokenPurgeSpec })},
	{"MAX_FILES", envInt(func(c *Config) *int { return &c.MaxFilesPerUpload })},
	{"MAX_FILE_SIZE", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.MaxFileSizeBytes = n
		return nil
	}},
	{"ALLOWED_TYPES", envList(func(c *Config) *[]string { return &c.AllowedContentTypes })},
	{"PUBLIC_URL", envString(func(c *Config) *string { return &c.PublicBaseURL })},
	{"CORS_ORIGINS", envList(func(c *Config) *[]string { return &c.CORSAllowedOrigins })},
	{"SHUTDOWN_TIMEOUT", envDuration(func(c *Config) *time.Duration { return &c.ShutdownTimeout })},
	{"LOG_LEVEL", envString(func(c *Config) *string { return &c.LogLevel })},
	{"LOG_FORMAT", envString(func(c *Config) *string { return &c.LogFormat })},
}

// parseEnv overlays FILESHARE_* variables. Values from envFile are used
// only where the real environment does not set the variable; a missing
// envFile is not an error.
func parseEnv(cfg *Config, envFile string, lookupEnv func(string) (string, bool)) error {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", envFile, err)
		}
		if vals != nil {
			fileVals = vals
		}
	}

	for _, b := range envBindings {
		key := envPrefix + b.name
		v, ok := lookupEnv(key)
		if !ok {
			v, ok = fileVals[key]
		}
		if !ok {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
