package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Credential states
const (
	StateActive  = "active"
	StateRevoked = "revoked"
)

// CredentialRow is one stored credential.
type CredentialRow struct {
	ID        string
	Class     string
	Payload   []byte
	State     string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// InsertCredential stores a new active credential. Inserting an id that
// already exists reactivates nothing and reports false.
func (d *Database) InsertCredential(ctx context.Context, id, class string, payload []byte) (bool, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO credentials (id, class, payload, state, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, class, payload, StateActive, time.Now().UTC())
	recordQuery("insert_credential", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to insert credential: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListCredentials returns credentials ordered by creation time. Revoked rows
// are included only when includeRevoked is set.
func (d *Database) ListCredentials(ctx context.Context, includeRevoked bool) ([]CredentialRow, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT id, class, payload, state, created_at, revoked_at FROM credentials`
	args := []interface{}{}
	if !includeRevoked {
		query += ` WHERE state = ?`
		args = append(args, StateActive)
	}
	query += ` ORDER BY created_at, id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		recordQuery("list_credentials", start, err)
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var out []CredentialRow
	for rows.Next() {
		var row CredentialRow
		var revokedAt sql.NullTime
		if err := rows.Scan(&row.ID, &row.Class, &row.Payload, &row.State, &row.CreatedAt, &revokedAt); err != nil {
			recordQuery("list_credentials", start, err)
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		if revokedAt.Valid {
			t := revokedAt.Time
			row.RevokedAt = &t
		}
		out = append(out, row)
	}
	err = rows.Err()
	recordQuery("list_credentials", start, err)
	return out, err
}

// RevokeCredential marks a credential revoked and clears its payload.
// Revoking an already revoked credential is not an error. ErrNotFound is
// returned for unknown ids.
func (d *Database) RevokeCredential(ctx context.Context, id string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		`UPDATE credentials SET state = ?, payload = NULL, revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		StateRevoked, time.Now().UTC(), id)
	if err != nil {
		recordQuery("revoke_credential", start, err)
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		err = ErrNotFound
	}
	recordQuery("revoke_credential", start, err)
	return err
}
