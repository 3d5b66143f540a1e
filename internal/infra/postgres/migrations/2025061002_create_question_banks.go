package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createQuestionBanksSQL = `
CREATE TABLE IF NOT EXISTS question_banks (
	id TEXT PRIMARY KEY,
	data JSONB NOT NULL
);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuestionBanksSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS question_banks`)
			return err
		},
	)
}
