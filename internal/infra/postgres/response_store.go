package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-grading-service/internal/domain"
)

const pgUniqueViolation = "23505"

type responseRow struct {
	bun.BaseModel `bun:"table:responses,alias:r"`

	ID             int64                          `bun:"id,pk,autoincrement"`
	Nombre         string                         `bun:"nombre,notnull"`
	Apellido       string                         `bun:"apellido,notnull"`
	Correo         string                         `bun:"correo,notnull,unique"`
	IP             string                         `bun:"ip,notnull,default:''"`
	Type           string                         `bun:"type,notnull"`
	Fecha          string                         `bun:"fecha,notnull"`
	Score          int                            `bun:"score,notnull"`
	Total          int                            `bun:"total,notnull"`
	Answers        map[string]domain.AnswerDetail `bun:"answers,type:jsonb"`
	Justifications map[string]string              `bun:"justifications,type:jsonb"`
	Corrected      bool                           `bun:"corrected,notnull,default:false"`
}

// ResponseStore persists submission records in the responses table. Unique
// indexes on correo and on non-empty ip back the duplicate check, so the
// pre-insert existence query can never admit two rows for one participant.
type ResponseStore struct {
	db *bun.DB
}

func NewResponseStore(db *bun.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

func (s *ResponseStore) Insert(ctx context.Context, record *domain.SubmissionRecord) error {
	row := toRow(*record)

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*responseRow)(nil)).
			Where("correo = ?", record.Correo).
			WhereOr("ip <> '' AND ip = ?", record.IP).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check existing: %w", err)
		}
		if exists {
			return domain.ErrDuplicateSubmission
		}

		if _, err := tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubmission
		}
		return err
	}

	record.ID = row.ID
	return nil
}

func (s *ResponseStore) FindByEmail(ctx context.Context, correo string) (domain.SubmissionRecord, error) {
	row := new(responseRow)
	err := s.db.NewSelect().Model(row).Where("correo = ?", correo).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SubmissionRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("find record: %w", err)
	}
	return fromRow(*row), nil
}

func (s *ResponseStore) List(ctx context.Context) ([]domain.SubmissionRecord, error) {
	var rows []responseRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]domain.SubmissionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromRow(row))
	}
	return records, nil
}

func (s *ResponseStore) Update(ctx context.Context, record domain.SubmissionRecord) error {
	row := toRow(record)
	res, err := s.db.NewUpdate().
		Model(row).
		Column("answers", "score", "corrected").
		Where("correo = ?", record.Correo).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Reset deletes every record, reclaims space and re-provisions the table.
func (s *ResponseStore) Reset(ctx context.Context) error {
	if _, err := s.db.NewDelete().Model((*responseRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	// VACUUM cannot run inside a transaction block.
	if _, err := s.db.ExecContext(ctx, "VACUUM responses"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*responseRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}
	return nil
}

func toRow(record domain.SubmissionRecord) *responseRow {
	return &responseRow{
		ID:             record.ID,
		Nombre:         record.Nombre,
		Apellido:       record.Apellido,
		Correo:         record.Correo,
		IP:             record.IP,
		Type:           record.Type,
		Fecha:          record.Fecha,
		Score:          record.Score,
		Total:          record.Total,
		Answers:        record.Answers,
		Justifications: record.Justifications,
		Corrected:      record.Corrected,
	}
}

func fromRow(row responseRow) domain.SubmissionRecord {
	return domain.SubmissionRecord{
		ID:             row.ID,
		Nombre:         row.Nombre,
		Apellido:       row.Apellido,
		Correo:         row.Correo,
		IP:             row.IP,
		Type:           row.Type,
		Fecha:          row.Fecha,
		Score:          row.Score,
		Total:          row.Total,
		Answers:        row.Answers,
		Justifications: row.Justifications,
		Corrected:      row.Corrected,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
