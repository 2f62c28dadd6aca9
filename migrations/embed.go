// Package migrations embeds the annotation store schema, one directory per
// database dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
