// Package db ships the SQL schema. The files use goose annotations, so
// cmd/migrate applies them through a goose provider; the goose CLI works too.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
