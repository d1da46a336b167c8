package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	fs := newFlagSet(t, "--env-file", "")

	cfg, err := LoadConfig(fs, noEnv)
	require.NoError(t, err)

	want := &Config{}
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_Flags(t *testing.T) {
	fs := newFlagSet(t, "--env-file", "",
		"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
		"-t", "1", "-r", "3", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		"--storage", "minio", "--max-files", "3", "--max-file-size", "1024",
		"--allowed-types", "image/png,text/csv", "--cache-ttl", "30s",
	)

	cfg, err := LoadConfig(fs, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.EndpointAddr)
	assert.Equal(t, "db", cfg.DatabaseDSN)
	assert.Equal(t, "secret", cfg.SecretKey)
	assert.Equal(t, time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, "user", cfg.S3RootUser)
	assert.Equal(t, "password", cfg.S3RootPassword)
	assert.Equal(t, "bucket", cfg.S3Bucket)
	assert.Equal(t, "us-west-1", cfg.S3Region)
	assert.Equal(t, "http://endpoint", cfg.S3BaseEndpoint)
	assert.Equal(t, StorageMinio, cfg.StorageBackend)
	assert.Equal(t, 3, cfg.MaxFilesPerUpload)
	assert.EqualValues(t, 1024, cfg.MaxFileSizeBytes)
	assert.Equal(t, []string{"image/png", "text/csv"}, cfg.AllowedContentTypes)
	assert.Equal(t, 30*time.Second, cfg.FileListCacheTTL)
}

func TestLoadConfig_Precedence(t *testing.T) {
	envFile := writeFile(t, ".env", "FILESHARE_ADDRESS=:7000\nFILESHARE_S3_BUCKET=from-file\nFILESHARE_REDIS_ADDR=redis:6379\n")
	jsonFile := writeFile(t, "cfg.json", `{"s3_bucket":"from-json","secret_key":"json-secret","cache_ttl":"1m"}`)

	env := mapEnv(map[string]string{
		"FILESHARE_ADDRESS":    ":7001",
		"FILESHARE_SECRET_KEY": "env-secret",
	})

	fs := newFlagSet(t, "--env-file", envFile, "-c", jsonFile, "-s", "flag-secret")

	cfg, err := LoadConfig(fs, env)
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.EndpointAddr, "real env beats .env file")
	assert.Equal(t, "redis:6379", cfg.RedisAddr, ".env file fills gaps")
	assert.Equal(t, "from-json", cfg.S3Bucket, "json beats env")
	assert.Equal(t, "flag-secret", cfg.SecretKey, "flags beat json")
	assert.Equal(t, time.Minute, cfg.FileListCacheTTL)
}

func TestLoadConfig_JSONCanClearDSN(t *testing.T) {
	jsonFile := writeFile(t, "cfg.json", `{"database_dsn":"","storage":"memory","s3_use_ssl":true}`)
	fs := newFlagSet(t, "--env-file", "", "--config", jsonFile)

	cfg, err := LoadConfig(fs, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.True(t, cfg.S3UseSSL)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing json", func(t *testing.T) {
		fs := newFlagSet(t, "--env-file", "", "-c", filepath.Join(t.TempDir(), "nope.json"))
		_, err := LoadConfig(fs, noEnv)
		require.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		fs := newFlagSet(t, "--env-file", "", "-c", writeFile(t, "cfg.json", "{"))
		_, err := LoadConfig(fs, noEnv)
		require.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		fs := newFlagSet(t, "--env-file", "")
		_, err := LoadConfig(fs, mapEnv(map[string]string{"FILESHARE_MAX_FILES": "many"}))
		require.ErrorContains(t, err, "FILESHARE_MAX_FILES")
	})

	t.Run("invalid storage", func(t *testing.T) {
		fs := newFlagSet(t, "--env-file", "", "--storage", "floppy")
		_, err := LoadConfig(fs, noEnv)
		require.ErrorContains(t, err, "floppy")
	})

	t.Run("missing env file is fine", func(t *testing.T) {
		fs := newFlagSet(t, "--env-file", filepath.Join(t.TempDir(), "absent.env"))
		_, err := LoadConfig(fs, noEnv)
		require.NoError(t, err)
	})
}

func TestConfig_ShareURL(t *testing.T) {
	c := &Config{}
	assert.Equal(t, "/share/abc", c.ShareURL("abc"))

	c.PublicBaseURL = "https://files.example.com/"
	assert.Equal(t, "https://files.example.com/share/abc", c.ShareURL("abc"))
}
