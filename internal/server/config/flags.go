package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-s string     session token HMAC secret key
//	-t int        session validity, minutes
//	-m int        maximum pool connections
//	-i int        idle pool connections kept open
//	-w duration   connection acquire timeout (e.g., "3s")
//	-b int        bcrypt cost
//	-l string     log format: json, text or zap
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs); -c,
// -config and -env belong to the other loaders.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-m", "-i", "-w", "-b", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")

	fs.IntVar(&config.MaxConns, "m", config.MaxConns, "maximum pool connections")
	fs.IntVar(&config.MinIdleConns, "i", config.MinIdleConns, "idle pool connections")
	fs.DurationVar(&config.AcquireTimeout, "w", config.AcquireTimeout, "connection acquire timeout")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json, text, zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
}
