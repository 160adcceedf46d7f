package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string     PostgreSQL DSN
//	-m int        maximum pool connections
//	-w duration   connection acquire timeout
//	-b int        bcrypt cost
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-m", "-w", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.IntVar(&cfg.MaxConns, "m", cfg.MaxConns, "maximum pool connections")
	fs.DurationVar(&cfg.AcquireTimeout, "w", cfg.AcquireTimeout, "connection acquire timeout")
	fs.IntVar(&cfg.BcryptCost, "b", cfg.BcryptCost, "bcrypt cost")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
