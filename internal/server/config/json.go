package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/timex"
)

// JsonConfig is the on-disk shape of the --config file. Durations accept
// both "15m" strings and integer nanoseconds. Absent or zero fields leave
// the current value untouched; booleans are pointers so false can be set.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  *string        `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	StorageBackend               string         `json:"storage"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3UseSSL                     *bool          `json:"s3_use_ssl"`
	PresignDownloads             *bool          `json:"presign_downloads"`
	PresignTTL                   timex.Duration `json:"presign_ttl"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	FileListCacheTTL             timex.Duration `json:"cache_ttl"`
	WorkerConcurrency            int            `json:"worker_concurrency"`
	TokenPurgeSpec               string         `json:"token_purge_spec"`
	MaxFilesPerUpload            int            `json:"max_files"`
	MaxFileSizeBytes             int64          `json:"max_file_size"`
	AllowedContentTypes          []string       `json:"allowed_types"`
	PublicBaseURL                string         `json:"public_url"`
	CORSAllowedOrigins           []string       `json:"cors_origins"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
}

// parseJson overlays the JSON file at path onto config.
func parseJson(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3UseSSL != nil {
		config.S3UseSSL = *c.S3UseSSL
	}
	if c.PresignDownloads != nil {
		config.PresignDownloads = *c.PresignDownloads
	}
	setDuration(&config.PresignTTL, c.PresignTTL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	setDuration(&config.FileListCacheTTL, c.FileListCacheTTL)
	if c.WorkerConcurrency != 0 {
		config.WorkerConcurrency = c.WorkerConcurrency
	}
	setString(&config.TokenPurgeSpec, c.TokenPurgeSpec)
	if c.MaxFilesPerUpload != 0 {
		config.MaxFilesPerUpload = c.MaxFilesPerUpload
	}
	if c.MaxFileSizeBytes != 0 {
		config.MaxFileSizeBytes = c.MaxFileSizeBytes
	}
	if c.AllowedContentTypes != nil {
		config.AllowedContentTypes = c.AllowedContentTypes
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
