package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/dmitrijs2005/contactbook/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	DatabaseDSN    string         `json:"database_dsn"`
	MaxConns       int            `json:"max_conns"`
	AcquireTimeout timex.Duration `json:"acquire_timeout"`
	BcryptCost     int            `json:"bcrypt_cost"`
}

// parseJson overlays cfg with the JSON file named by -c or -config. Keys the
// file leaves out keep their value. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.MaxConns != 0 {
		cfg.MaxConns = jc.MaxConns
	}
	if jc.AcquireTimeout.Duration != 0 {
		cfg.AcquireTimeout = time.Duration(jc.AcquireTimeout.Duration)
	}
	if jc.BcryptCost != 0 {
		cfg.BcryptCost = jc.BcryptCost
	}
}
