package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCHealthAddr)
	assert.Equal(t, StoragePostgres, c.StorageDriver)
	assert.Empty(t, c.SecretKey, "no built-in signing key")
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 60*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 5, c.LoginMaxAttempts)
	assert.Equal(t, []string{"*"}, c.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		c.SecretKey = testKey
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "short key", mutate: func(c *Config) { c.SecretKey = testKey[:31] }, want: "at least 32 bytes"},
		{name: "missing key", mutate: func(c *Config) { c.SecretKey = "" }, want: "at least 32 bytes"},
		{name: "missing issuer", mutate: func(c *Config) { c.Issuer = "" }, want: "issuer and audience"},
		{name: "missing audience", mutate: func(c *Config) { c.Audience = "" }, want: "issuer and audience"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, want: "lifetimes"},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mongo" }, want: "unknown storage driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.DatabaseDSN = "" }, want: "dsn is required"},
		{name: "memory without dsn", mutate: func(c *Config) { c.StorageDriver = StorageMemory; c.DatabaseDSN = "" }},
		{name: "negative attempts", mutate: func(c *Config) { c.LoginMaxAttempts = -1 }, want: "max attempts"},
		{name: "redis without lockout", mutate: func(c *Config) { c.RedisAddr = "localhost:6379"; c.LoginLockoutDuration = 0 }, want: "lockout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nizamla.yaml")
	yml := strings.Join([]string{
		"http_addr: \":9000\"",
		"issuer: file-issuer",
		"audience: file-audience",
		"secret_key: " + testKey,
		"refresh_token_validity_duration: 720h",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	env := envMap(map[string]string{
		"NIZAMLA_JWT_ISSUER": "env-issuer",
		"NIZAMLA_HTTP_ADDR":  ":9100",
	})
	args := []string{"-c", path, "-a", ":9200"}

	cfg, err := load(args, env)
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.HTTPAddr, "flag beats env and file")
	assert.Equal(t, "env-issuer", cfg.Issuer, "env beats file")
	assert.Equal(t, "file-audience", cfg.Audience, "file beats default")
	assert.Equal(t, testKey, cfg.SecretKey)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration, "default kept")
}

func TestLoad_FailsFastOnShortKey(t *testing.T) {
	cfg, err := load([]string{"-s", "short"}, noEnv)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load([]string{"-c", filepath.Join(t.TempDir(), "nope.json")}, noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
