package credentials

import (
	"context"
	"errors"

	"clip-stacker/internal/database"
)

// SQLiteRepository stores credentials in the SQLite credential database.
type SQLiteRepository struct {
	db *database.Database
}

// NewSQLiteRepository wraps an open database.
func NewSQLiteRepository(db *database.Database) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.ListCredentials(ctx, false)
	if err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

// ListAll returns active and revoked credentials.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := r.db.ListCredentials(ctx, true)
	if err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

// Add stores payload under class and returns its record. Adding a payload
// that is already stored returns the existing id with added false.
func (r *SQLiteRepository) Add(ctx context.Context, class string, payload []byte) (Record, bool, error) {
	if class == "" {
		class = DefaultClass
	}
	id := Fingerprint(payload)
	added, err := r.db.InsertCredential(ctx, id, class, payload)
	if err != nil {
		return Record{}, false, err
	}
	return Record{ID: id, Class: class, Payload: payload, Source: "sqlite:" + id, State: StateActive}, added, nil
}

// Revoke implements Repository.
func (r *SQLiteRepository) Revoke(ctx context.Context, id string) error {
	err := r.db.RevokeCredential(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeStrict revokes id and reports ErrNotFound for unknown ids.
func (r *SQLiteRepository) RevokeStrict(ctx context.Context, id string) error {
	err := r.db.RevokeCredential(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func toRecords(rows []database.CredentialRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{
			ID:      row.ID,
			Class:   row.Class,
			Payload: row.Payload,
			Source:  "sqlite:" + row.ID,
			State:   State(row.State),
		})
	}
	return out
}
