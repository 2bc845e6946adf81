// Package migrations carries the SQLite schema as numbered scripts.
// NNN_name.up.sql files are applied in order; the .down.sql twins are for
// rolling back by hand.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
