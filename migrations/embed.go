// Package migrations embeds per-dialect SQL migrations applied by goose.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql mysql/*.sql
var FS embed.FS
