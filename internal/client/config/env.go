package config

import (
	"os"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv reads DATABASE_URL, after loading the .env file named by -env.
func parseEnv(cfg *Config) {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DatabaseDSN = v
	}
}
