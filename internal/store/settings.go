package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/erazemk/premik/internal/db"
)

// GetHandoffSecret retrieves the handoff token signing secret from the
// database. If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetHandoffSecret(ctx context.Context, q db.DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating handoff secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('handoff_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing handoff_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'handoff_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying handoff_secret: %w", err)
	}

	return secret, nil
}
