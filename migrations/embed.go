// Package migrations embeds the SQL schema migrations for the persistent
// store at compile time.
package migrations

import "embed"

// FS contains all SQL migration files, rooted at this package's directory.
//
//go:embed *.sql
var FS embed.FS
