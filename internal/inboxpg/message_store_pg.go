package inboxpg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tyemirov/folio/internal/store"
)

// PostgresMessageStore persists contact-form submissions in PostgreSQL
// without going through the ORM.
type PostgresMessageStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMessageStore constructs a Postgres store.
func NewPostgresMessageStore(pool *pgxpool.Pool) *PostgresMessageStore {
	return &PostgresMessageStore{pool: pool}
}

// Add inserts a submission row and fills in its id and timestamp.
func (inbox *PostgresMessageStore) Add(ctx context.Context, record *store.MessageRecord) error {
	if record.CreatedAtUnix == 0 {
		record.CreatedAtUnix = time.Now().UTC().Unix()
	}
	row := inbox.pool.QueryRow(ctx, `
INSERT INTO messages (name, email, subject, body, created_at_unix)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, record.Name, record.Email, record.Subject, record.Body, record.CreatedAtUnix)
	var id int64
	if scanErr := row.Scan(&id); scanErr != nil {
		return scanErr
	}
	record.ID = uint(id)
	return nil
}

// List returns submissions, newest first.
func (inbox *PostgresMessageStore) List(ctx context.Context) ([]store.MessageRecord, error) {
	rows, queryErr := inbox.pool.Query(ctx, `
SELECT id, name, email, subject, body, created_at_unix
FROM messages
ORDER BY created_at_unix DESC, id DESC
`)
	if queryErr != nil {
		return nil, queryErr
	}
	defer rows.Close()
	var records []store.MessageRecord
	for rows.Next() {
		var id int64
		var record store.MessageRecord
		if scanErr := rows.Scan(&id, &record.Name, &record.Email, &record.Subject, &record.Body, &record.CreatedAtUnix); scanErr != nil {
			return nil, scanErr
		}
		record.ID = uint(id)
		records = append(records, record)
	}
	return records, rows.Err()
}

// Delete removes a submission by id.
func (inbox *PostgresMessageStore) Delete(ctx context.Context, id uint) error {
	tag, execErr := inbox.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, int64(id))
	if execErr != nil {
		return execErr
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
