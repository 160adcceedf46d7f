package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvSecretKey       = "CONTACTBOOK_SECRET_KEY"
	EnvAddr            = "CONTACTBOOK_ADDR"
	EnvSessionValidity = "CONTACTBOOK_SESSION_VALIDITY"
	EnvMaxConns        = "CONTACTBOOK_MAX_CONNS"
	EnvAcquireTimeout  = "CONTACTBOOK_ACQUIRE_TIMEOUT"
	EnvBcryptCost      = "CONTACTBOOK_BCRYPT_COST"
	EnvLogFormat       = "CONTACTBOOK_LOG_FORMAT"
)

// loadDotenv loads file into the process environment without overriding
// variables that are already set. With no file given it tries ./.env and
// ignores its absence.
func loadDotenv(file string) error {
	if file != "" {
		return godotenv.Load(file)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// parseEnv overlays config with environment variables. A .env file named by
// -env is loaded first. Malformed values panic, like the other sources.
func parseEnv(config *Config) {
	if err := loadDotenv(flagx.EnvFileFlags()); err != nil {
		panic(err)
	}

	if v := os.Getenv(EnvDatabaseURL); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv(EnvSessionValidity); v != "" {
		config.SessionValidityDuration = mustDuration(EnvSessionValidity, v)
	}
	if v := os.Getenv(EnvAcquireTimeout); v != "" {
		config.AcquireTimeout = mustDuration(EnvAcquireTimeout, v)
	}
	if v := os.Getenv(EnvMaxConns); v != "" {
		config.MaxConns = mustInt(EnvMaxConns, v)
	}
	if v := os.Getenv(EnvBcryptCost); v != "" {
		config.BcryptCost = mustInt(EnvBcryptCost, v)
	}
}

func mustDuration(name, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(name + ": " + err.Error())
	}
	return d
}

func mustInt(name, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(name + ": " + err.Error())
	}
	return n
}
