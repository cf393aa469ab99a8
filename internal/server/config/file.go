package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/nizamla/internal/flagx"
	"github.com/dmitrijs2005/nizamla/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// "30m" style strings or integer nanoseconds. Zero values leave the current
// setting alone.
type FileConfig struct {
	HTTPAddr                     string         `json:"http_addr" yaml:"http_addr"`
	GRPCHealthAddr               string         `json:"grpc_health_addr" yaml:"grpc_health_addr"`
	StorageDriver                string         `json:"storage_driver" yaml:"storage_driver"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	Issuer                       string         `json:"issuer" yaml:"issuer"`
	Audience                     string         `json:"audience" yaml:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	LoginMaxAttempts             int            `json:"login_max_attempts" yaml:"login_max_attempts"`
	LoginLockoutDuration         timex.Duration `json:"login_lockout_duration" yaml:"login_lockout_duration"`
	CORSAllowedOrigins           []string       `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	HealthCheckInterval          timex.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the file named by -c/-config, if any. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCHealthAddr, fc.GRPCHealthAddr)
	setString(&c.StorageDriver, fc.StorageDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.Issuer, fc.Issuer)
	setString(&c.Audience, fc.Audience)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.LogLevel, fc.LogLevel)

	if fc.AccessTokenValidityDuration.Duration != 0 {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration.Duration != 0 {
		c.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.LoginLockoutDuration.Duration != 0 {
		c.LoginLockoutDuration = fc.LoginLockoutDuration.Duration
	}
	if fc.HealthCheckInterval.Duration != 0 {
		c.HealthCheckInterval = fc.HealthCheckInterval.Duration
	}
	if fc.ShutdownTimeout.Duration != 0 {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	if fc.LoginMaxAttempts != 0 {
		c.LoginMaxAttempts = fc.LoginMaxAttempts
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
