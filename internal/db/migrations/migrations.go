// Package migrations embeds the goose SQL migrations.
package migrations

import "embed"

// FS holds every migration at its root, ready for pg.Migrate.
//
//go:embed *.sql
var FS embed.FS
