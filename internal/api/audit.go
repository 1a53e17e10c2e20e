package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/export"
	"github.com/erazemk/premik/internal/model"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	DB    *sql.DB
	Trail *audit.Trail
}

type recordRequest struct {
	Entity   string            `json:"entity"`
	EntityID string            `json:"entity_id"`
	Action   model.AuditAction `json:"action"`
	Actor    string            `json:"actor"`
	Changes  []model.Change    `json:"changes"`
	Metadata map[string]string `json:"metadata"`
}

// Record handles POST /api/audit for changes made outside the workflows.
func (h *AuditHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var entry *model.AuditEntry
	err := db.RunInTx(r.Context(), h.DB, func(ctx context.Context, tx db.DBTX) error {
		var err error
		entry, err = h.Trail.Record(ctx, tx, audit.Entry{
			Entity:   req.Entity,
			EntityID: req.EntityID,
			Action:   req.Action,
			Actor:    req.Actor,
			Changes:  req.Changes,
			Metadata: req.Metadata,
		})
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, entry)
}

func auditFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Actor:    q.Get("actor"),
	}

	var err error
	if v := q.Get("from"); v != "" {
		if f.From, err = time.Parse(time.RFC3339, v); err != nil {
			return f, model.Validation("invalid from: %s", v)
		}
	}
	if v := q.Get("to"); v != "" {
		if f.To, err = time.Parse(time.RFC3339, v); err != nil {
			return f, model.Validation("invalid to: %s", v)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, model.Validation("to must not be before from")
	}

	limit, err := queryInt64(r, "limit")
	if err != nil {
		return f, model.Validation("%s", err.Error())
	}
	f.Limit = int(limit)
	return f, nil
}

// Query handles GET /api/audit.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	f, err := auditFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := audit.Query(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Export handles GET /api/audit/export.csv. It accepts the Query filters.
func (h *AuditHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := auditFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := audit.Query(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	csvResponse(w, "audit.csv")
	if err := export.WriteAudit(w, entries); err != nil {
		slog.Error("writing audit export", "error", err)
	}
}

// Purge handles DELETE /api/audit.
func (h *AuditHandler) Purge(w http.ResponseWriter, r *http.Request) {
	n, err := audit.Purge(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Warn("audit trail purged", "deleted", n)
	jsonResponse(w, http.StatusOK, map[string]int64{"deleted": n})
}
