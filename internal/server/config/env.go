package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "NIZAMLA_"

// parseEnv overlays NIZAMLA_* variables. lookup is os.LookupEnv outside tests.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_HEALTH_ADDR", &config.GRPCHealthAddr)
	str("STORAGE_DRIVER", &config.StorageDriver)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("JWT_KEY", &config.SecretKey)
	str("JWT_ISSUER", &config.Issuer)
	str("JWT_AUDIENCE", &config.Audience)
	str("REDIS_ADDR", &config.RedisAddr)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := lookup(envPrefix + "CORS_ALLOWED_ORIGINS"); ok && v != "" {
		config.CORSAllowedOrigins = splitList(v)
	}

	if v, ok := lookup(envPrefix + "LOGIN_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sLOGIN_MAX_ATTEMPTS: %w", envPrefix, err)
		}
		config.LoginMaxAttempts = n
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &config.AccessTokenValidityDuration,
		"REFRESH_TOKEN_TTL": &config.RefreshTokenValidityDuration,
		"LOGIN_LOCKOUT":     &config.LoginLockoutDuration,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
