package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema migration, applied by the migrate CLI command
// and by server startup when Postgres is configured.
var Migrations = migrate.NewMigrations()
