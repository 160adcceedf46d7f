package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/dmitrijs2005/contactbook/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP        string         `json:"endpoint_addr_http"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	MaxConns                int            `json:"max_conns"`
	MinIdleConns            int            `json:"min_idle_conns"`
	AcquireTimeout          timex.Duration `json:"acquire_timeout"`
	BcryptCost              int            `json:"bcrypt_cost"`
	LogFormat               string         `json:"log_format"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config. Keys missing from the file leave the current value untouched.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogFormat, c.LogFormat)
	setDuration(&config.SessionValidityDuration, c.SessionValidityDuration.Duration)
	setDuration(&config.AcquireTimeout, c.AcquireTimeout.Duration)
	setInt(&config.MaxConns, c.MaxConns)
	setInt(&config.MinIdleConns, c.MinIdleConns)
	setInt(&config.BcryptCost, c.BcryptCost)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
