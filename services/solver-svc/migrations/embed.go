// Package migrations содержит SQL миграции истории прогонов.
package migrations

import "embed"

// FS встроенные миграции, применяются goose через database.Open
//
//go:embed *.sql
var FS embed.FS

// Dir каталог миграций внутри FS
const Dir = "."
