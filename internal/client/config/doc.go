// Package config loads runtime configuration for the contactbook terminal
// client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. DATABASE_URL from the environment, optionally seeded from a .env file
//     named by -env.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string     PostgreSQL DSN
//	-m int        maximum pool connections
//	-w duration   connection acquire timeout
//	-b int        bcrypt cost
//
// # JSON schema
//
//	{
//	  "database_dsn": "postgres://localhost/contactbook",
//	  "max_conns": 2,
//	  "acquire_timeout": "5s",
//	  "bcrypt_cost": 12
//	}
package config
