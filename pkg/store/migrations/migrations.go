// Package migrations embeds the PostgreSQL schema migrations applied by
// golang-migrate through pkg/store's iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
