package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/advn1/rback/internal/flagx"
	"github.com/joho/godotenv"
)

// loadDotenv reads -env FILE, or ./.env when the flag is absent, into the
// process environment. Variables already set are not overridden. A missing
// default file is fine; a missing explicit one is not.
func loadDotenv(args []string) error {
	path := flagx.EnvFilePath(args)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func parseEnv(c *Config) error {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	setString("HTTP_ADDR", &c.HTTPAddr)
	setString("GRPC_ADDR", &c.GRPCAddr)
	setString("DATABASE_DSN", &c.DatabaseDSN)
	setString("SALT", &c.Salt)
	setString("SECRET_KEY_ACCESS", &c.AccessKey)
	setString("SECRET_KEY_REFRESH", &c.RefreshKey)
	setString("SESSION_STORE", &c.SessionStore)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	setString("REDIS_PREFIX", &c.RedisPrefix)
	setString("LOG_LEVEL", &c.LogLevel)

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &c.AccessTokenValidityDuration},
		{"REFRESH_TOKEN_TTL", &c.RefreshTokenValidityDuration},
		{"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.RedisDB = n
	}
	return nil
}
