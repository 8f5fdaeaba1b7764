// Package migrations embeds the goose SQL migration files so both the API
// and the worker binary can apply them on startup.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
