// Package migrations embeds the SQL files that create the database schema.
// Every statement is idempotent, so the set can be applied on each start.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
