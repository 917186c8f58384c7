// Package migrations embeds the postgres schema for the customer directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
