package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createResponsesSQL = `
CREATE TABLE IF NOT EXISTS responses (
	id BIGSERIAL PRIMARY KEY,
	nombre TEXT NOT NULL,
	apellido TEXT NOT NULL,
	correo TEXT NOT NULL,
	ip TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	fecha TEXT NOT NULL,
	score INTEGER NOT NULL,
	total INTEGER NOT NULL,
	answers JSONB NOT NULL DEFAULT '{}'::jsonb,
	justifications JSONB NOT NULL DEFAULT '{}'::jsonb,
	corrected BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS responses_correo_key ON responses (correo);
CREATE UNIQUE INDEX IF NOT EXISTS responses_ip_key ON responses (ip) WHERE ip <> '';
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createResponsesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS responses`)
			return err
		},
	)
}
