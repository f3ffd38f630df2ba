// Package migrations embeds the SQL schema migrations so binaries do not
// depend on the working directory.
package migrations

import "embed"

// FS holds the NNNNNN_name.{up,down}.sql files.
//
//go:embed *.sql
var FS embed.FS
