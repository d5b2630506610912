package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Migrations embeds the SQL schema migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the files.
const MigrationsDir = "migrations"
