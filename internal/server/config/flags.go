package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address (e.g. ":50051")
//	-m string   storage driver: postgres or memory
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key (at least 32 bytes)
//	-i string   JWT issuer
//	-u string   JWT audience
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-redis      Redis address for the login limiter ("" disables it)
//	-l string   log level
//
// Duration flags are taken in minutes, as integers.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-m", "-d", "-s", "-i", "-u", "-t", "-r", "-redis", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "gRPC health address and port")
	fs.StringVar(&config.StorageDriver, "m", config.StorageDriver, "storage driver (postgres|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "JWT issuer")
	fs.StringVar(&config.Audience, "u", config.Audience, "JWT audience")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address for login limiter")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Minute flags override only when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
