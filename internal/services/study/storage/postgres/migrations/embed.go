package migrations

import "embed"

// FS contains embedded PostgreSQL migrations for study storage.
//
//go:embed *.sql
var FS embed.FS
