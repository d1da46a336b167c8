package config

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

// RegisterFlags declares the server flags on fs. Defaults shown in --help
// come from LoadDefaults; only flags the user actually sets override the
// environment and the JSON file.
//
// Short forms kept from the original CLI:
//
//	-a  listen address          -d  PostgreSQL DSN ("" for in-memory)
//	-s  JWT HMAC secret         -t  access token validity, minutes
//	-r  refresh validity, min   -u  S3 root user
//	-p  S3 root password        -b  S3 bucket
//	-g  S3 region               -e  S3 base endpoint
//	-c  JSON config file
func RegisterFlags(fs *pflag.FlagSet) {
	d := &Config{}
	d.LoadDefaults()

	fs.StringP("config", "c", "", "path to JSON config file")
	fs.String("env-file", ".env", "dotenv file consulted for FILESHARE_* variables")

	fs.StringP("address", "a", d.EndpointAddr, "address and port to run server")
	fs.StringP("database-dsn", "d", d.DatabaseDSN, "database DSN, empty for in-memory storage")
	fs.StringP("secret-key", "s", d.SecretKey, "secret key")
	fs.IntP("access-ttl", "t", int(d.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.IntP("refresh-ttl", "r", int(d.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.String("storage", d.StorageBackend, "blob storage backend: memory, s3 or minio")
	fs.StringP("s3-user", "u", d.S3RootUser, "S3 root user")
	fs.StringP("s3-password", "p", d.S3RootPassword, "S3 root password")
	fs.StringP("s3-bucket", "b", d.S3Bucket, "S3 bucket")
	fs.StringP("s3-region", "g", d.S3Region, "S3 region")
	fs.StringP("s3-endpoint", "e", d.S3BaseEndpoint, "S3 base endpoint")
	fs.Bool("s3-use-ssl", d.S3UseSSL, "use TLS for the minio backend")
	fs.Bool("presign-downloads", d.PresignDownloads, "redirect downloads to presigned storage URLs")
	fs.Duration("presign-ttl", d.PresignTTL, "lifetime of presigned download URLs")

	fs.String("redis-addr", d.RedisAddr, "redis address for cache and job queue, empty to disable")
	fs.String("redis-password", d.RedisPassword, "redis password")
	fs.Int("redis-db", d.RedisDB, "redis database number")
	fs.Duration("cache-ttl", d.FileListCacheTTL, "file list cache lifetime")
	fs.Int("worker-concurrency", d.WorkerConcurrency, "number of concurrent background jobs")
	fs.String("token-purge-spec", d.TokenPurgeSpec, "cron spec for purging expired refresh tokens")

	fs.Int("max-files", d.MaxFilesPerUpload, "maximum files per upload batch")
	fs.Int64("max-file-size", d.MaxFileSizeBytes, "maximum size of one uploaded file in bytes")
	fs.StringSlice("allowed-types", d.AllowedContentTypes, "accepted MIME types, empty for the built-in list")

	fs.String("public-url", d.PublicBaseURL, "public base URL used to render share links")
	fs.StringSlice("cors-origins", d.CORSAllowedOrigins, "allowed CORS origins")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "log format: json or text")
}

// applyFlags copies the flags the user set on the command line into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	return errors.Join(
		apply(fs, "address", fs.GetString, &cfg.EndpointAddr),
		apply(fs, "database-dsn", fs.GetString, &cfg.DatabaseDSN),
		apply(fs, "secret-key", fs.GetString, &cfg.SecretKey),
		applyMinutes(fs, "access-ttl", &cfg.AccessTokenValidityDuration),
		applyMinutes(fs, "refresh-ttl", &cfg.RefreshTokenValidityDuration),

		apply(fs, "storage", fs.GetString, &cfg.StorageBackend),
		apply(fs, "s3-user", fs.GetString, &cfg.S3RootUser),
		apply(fs, "s3-password", fs.GetString, &cfg.S3RootPassword),
		apply(fs, "s3-bucket", fs.GetString, &cfg.S3Bucket),
		apply(fs, "s3-region", fs.GetString, &cfg.S3Region),
		apply(fs, "s3-endpoint", fs.GetString, &cfg.S3BaseEndpoint),
		apply(fs, "s3-use-ssl", fs.GetBool, &cfg.S3UseSSL),
		apply(fs, "presign-downloads", fs.GetBool, &cfg.PresignDownloads),
		apply(fs, "presign-ttl", fs.GetDuration, &cfg.PresignTTL),

		apply(fs, "redis-addr", fs.GetString, &cfg.RedisAddr),
		apply(fs, "redis-password", fs.GetString, &cfg.RedisPassword),
		apply(fs, "redis-db", fs.GetInt, &cfg.RedisDB),
		apply(fs, "cache-ttl", fs.GetDuration, &cfg.FileListCacheTTL),
		apply(fs, "worker-concurrency", fs.GetInt, &cfg.WorkerConcurrency),
		apply(fs, "token-purge-spec", fs.GetString, &cfg.TokenPurgeSpec),

		apply(fs, "max-files", fs.GetInt, &cfg.MaxFilesPerUpload),
		apply(fs, "max-file-size", fs.GetInt64, &cfg.MaxFileSizeBytes),
		apply(fs, "allowed-types", fs.GetStringSlice, &cfg.AllowedContentTypes),

		apply(fs, "public-url", fs.GetString, &cfg.PublicBaseURL),
		apply(fs, "cors-origins", fs.GetStringSlice, &cfg.CORSAllowedOrigins),
		apply(fs, "shutdown-timeout", fs.GetDuration, &cfg.ShutdownTimeout),
		apply(fs, "log-level", fs.GetString, &cfg.LogLevel),
		apply(fs, "log-format", fs.GetString, &cfg.LogFormat),
	)
}

func apply[T any](fs *pflag.FlagSet, name string, get func(string) (T, error), dst *T) error {
	if !fs.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// applyMinutes reads an integer minutes flag into a duration.
func applyMinutes(fs *pflag.FlagSet, name string, dst *time.Duration) error {
	var m int
	if err := apply(fs, name, fs.GetInt, &m); err != nil || !fs.Changed(name) {
		return err
	}
	*dst = time.Duration(m) * time.Minute
	return nil
}
