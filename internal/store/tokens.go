package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

// InsertHandoffToken registers a freshly minted handoff token.
func InsertHandoffToken(ctx context.Context, q db.DBTX, t *model.HandoffToken) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO handoff_tokens (jti, entity, entity_id, phase, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.JTI, t.Entity, t.EntityID, t.Phase, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting handoff token: %w", err)
	}
	return nil
}

// GetHandoffToken returns a token record by JTI, or nil if unknown.
func GetHandoffToken(ctx context.Context, q db.DBTX, jti string) (*model.HandoffToken, error) {
	t := &model.HandoffToken{}
	var consumedAt sql.NullTime
	err := q.QueryRowContext(ctx,
		`SELECT jti, entity, entity_id, phase, created_at, consumed_at FROM handoff_tokens WHERE jti = ?`, jti,
	).Scan(&t.JTI, &t.Entity, &t.EntityID, &t.Phase, &t.CreatedAt, &consumedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting handoff token: %w", err)
	}
	if consumedAt.Valid {
		t.ConsumedAt = &consumedAt.Time
	}
	return t, nil
}

// ConsumeHandoffToken marks a token as used. It reports false when the token
// was already consumed (or does not exist); the check and the set happen in a
// single statement.
func ConsumeHandoffToken(ctx context.Context, q db.DBTX, jti string, at time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE handoff_tokens SET consumed_at = ? WHERE jti = ? AND consumed_at IS NULL`,
		at, jti,
	)
	if err != nil {
		return false, fmt.Errorf("consuming handoff token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consuming handoff token: %w", err)
	}
	return n == 1, nil
}
