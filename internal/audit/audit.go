// Package audit records an append-only trail of state changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/ids"
	"github.com/erazemk/premik/internal/model"
)

// Trail appends audit entries inside the caller's transaction.
type Trail struct {
	clock clock.Clock
	ids   ids.Generator
}

// New returns a trail stamping entries with c and g.
func New(c clock.Clock, g ids.Generator) *Trail {
	return &Trail{clock: c, ids: g}
}

// Entry is the caller-supplied part of an audit entry.
type Entry struct {
	Entity   string
	EntityID string
	Action   model.AuditAction
	Actor    string
	Changes  []model.Change
	Metadata map[string]string
}

// Record appends one entry and returns it with its id and timestamp filled.
func (t *Trail) Record(ctx context.Context, q db.DBTX, e Entry) (*model.AuditEntry, error) {
	switch {
	case e.Entity == "" || e.EntityID == "":
		return nil, model.Validation("audit entry needs entity and entity_id")
	case e.Actor == "":
		return nil, model.Validation("audit entry needs an actor")
	}
	switch e.Action {
	case model.AuditCreate, model.AuditUpdate, model.AuditDelete:
	default:
		return nil, model.Validation("unknown audit action %q", e.Action)
	}

	id, err := t.ids.New()
	if err != nil {
		return nil, fmt.Errorf("generating audit id: %w", err)
	}

	changes := e.Changes
	if changes == nil {
		changes = []model.Change{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encoding audit changes: %w", err)
	}
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding audit metadata: %w", err)
	}

	entry := &model.AuditEntry{
		ID:         id,
		Entity:     e.Entity,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Actor:      e.Actor,
		RecordedAt: t.clock.Now(),
		Changes:    changes,
		Metadata:   e.Metadata,
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO audit_entries (id, entity, entity_id, action, actor, recorded_at, changes, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Entity, entry.EntityID, entry.Action, entry.Actor, entry.RecordedAt,
		string(changesJSON), string(metadataJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("recording audit entry: %w", err)
	}
	return entry, nil
}

// Filter narrows Query. Zero values mean "any".
type Filter struct {
	Entity   string
	EntityID string
	Actor    string
	From     time.Time
	To       time.Time
	Limit    int
}

// Query returns matching entries newest first.
func Query(ctx context.Context, q db.DBTX, f Filter) ([]model.AuditEntry, error) {
	query := `SELECT id, entity, entity_id, action, actor, recorded_at, changes, metadata
	          FROM audit_entries WHERE 1=1`
	var args []any
	if f.Entity != "" {
		query += ` AND entity = ?`
		args = append(args, f.Entity)
	}
	if f.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, f.EntityID)
	}
	if f.Actor != "" {
		query += ` AND actor = ?`
		args = append(args, f.Actor)
	}
	// ULIDs sort by creation time.
	query += ` ORDER BY id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var changes, metadata string
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action, &e.Actor, &e.RecordedAt, &changes, &metadata); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		// Time bounds are applied here; stored timestamps are not reliably
		// comparable as text.
		if !f.From.IsZero() && e.RecordedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.RecordedAt.After(f.To) {
			continue
		}

		if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
			return nil, fmt.Errorf("decoding audit changes for %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding audit metadata for %s: %w", e.ID, err)
		}
		if len(e.Metadata) == 0 {
			e.Metadata = nil
		}

		entries = append(entries, e)
		if f.Limit > 0 && len(entries) == f.Limit {
			break
		}
	}
	return entries, rows.Err()
}

// Purge deletes the whole trail and reports how many entries were removed.
func Purge(ctx context.Context, q db.DBTX) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM audit_entries`)
	if err != nil {
		return 0, fmt.Errorf("purging audit trail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging audit trail: %w", err)
	}
	return n, nil
}
