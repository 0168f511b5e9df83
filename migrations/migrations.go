// Package migrations embeds the PostgreSQL schema migrations for the hero
// library, in golang-migrate's file naming scheme.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql migration.
//
//go:embed *.sql
var FS embed.FS
