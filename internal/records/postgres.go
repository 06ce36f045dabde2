package records

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when the ordinal
// UNIQUE constraint rejects an insert.
const uniqueViolation = "23505"

// PostgresTable stores registrations in the registrations table.
// Ordinal uniqueness is enforced by the schema, so a lost race between
// RowCount and Insert comes back as ErrOrdinalTaken.
type PostgresTable struct {
	db *sqlx.DB
}

// NewPostgresTable wraps an open sqlx handle.
func NewPostgresTable(db *sqlx.DB) *PostgresTable {
	return &PostgresTable{db: db}
}

func (t *PostgresTable) RowCount(ctx context.Context) (int, error) {
	var count int
	if err := t.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM registrations`); err != nil {
		return 0, err
	}
	return count, nil
}

func (t *PostgresTable) Insert(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO registrations
			(ordinal, name, district, phone, user_id, display_name, handle, reg_date, reg_time, status)
		VALUES
			(:ordinal, :name, :district, :phone, :user_id, :display_name, :handle, :reg_date, :reg_time, :status)`
	_, err := t.db.NamedExecContext(ctx, q, rec)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrOrdinalTaken
		}
		return err
	}
	return nil
}

func (t *PostgresTable) ReadAll(ctx context.Context) ([]Record, error) {
	var recs []Record
	const q = `
		SELECT ordinal, name, district, phone, user_id, display_name, handle, reg_date, reg_time, status
		FROM registrations
		ORDER BY ordinal`
	if err := t.db.SelectContext(ctx, &recs, q); err != nil {
		return nil, err
	}
	return recs, nil
}
