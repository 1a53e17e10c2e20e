package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/handoff"
	"github.com/erazemk/premik/internal/ids"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/metrics"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
)

// Deps are the collaborators every workflow service needs.
type Deps struct {
	DB      *sql.DB
	Ledger  *ledger.Ledger
	Tokens  *handoff.Registry
	Audit   *audit.Trail
	Metrics *metrics.Metrics // may be nil
	Clock   clock.Clock
	IDs     ids.Generator
}

// Core applies transitions of one entity type.
type Core[S ~string] struct {
	Deps
	Entity  string
	Table   string
	Machine *Machine[S]
}

// NewCore returns a core for the entity stored in table.
func NewCore[S ~string](d Deps, entity, table string, m *Machine[S]) *Core[S] {
	return &Core[S]{Deps: d, Entity: entity, Table: table, Machine: m}
}

// InTx runs fn in a single transaction. Failures are counted under action.
// Metrics recorded by Apply, Created and Redeem inside fn are only counted
// once the transaction commits.
func (c *Core[S]) InTx(ctx context.Context, action string, fn func(ctx context.Context, tx db.DBTX) error) error {
	p := &pending{}
	err := db.RunInTx(context.WithValue(ctx, pendingKey{}, p), c.DB, fn)
	if err != nil {
		c.Metrics.RecordFailure(c.Entity, action, string(model.KindOf(err)))
		return err
	}
	for _, f := range p.fns {
		f()
	}
	return nil
}

type pendingKey struct{}

type pending struct {
	fns []func()
}

// afterCommit defers f until the enclosing InTx commits. Outside InTx it
// runs f immediately.
func afterCommit(ctx context.Context, f func()) {
	if p, ok := ctx.Value(pendingKey{}).(*pending); ok {
		p.fns = append(p.fns, f)
		return
	}
	f()
}

// Transition describes one status change requested by an actor.
type Transition[S ~string] struct {
	ID       string
	Action   string
	From     S
	Actor    string
	Set      map[string]any    // extra columns written with the status
	Metadata map[string]string // copied into the audit entry
}

// Apply checks the transition table, swaps the status if it still equals
// t.From and records exactly one audit entry. It returns the new status.
func (c *Core[S]) Apply(ctx context.Context, q db.DBTX, t Transition[S]) (S, error) {
	if t.Actor == "" {
		return "", model.Validation("%s requires an actor", t.Action)
	}

	to, err := c.Machine.Target(t.ID, t.Action, t.From)
	if err != nil {
		return "", err
	}

	ok, err := store.CompareAndSetStatus(ctx, q, c.Table, t.ID, string(t.From), string(to), c.Clock.Now(), t.Set)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.InvalidTransition(c.Entity, t.ID, "status is no longer %s", t.From)
	}

	metadata := map[string]string{"action": t.Action}
	for k, v := range t.Metadata {
		metadata[k] = v
	}

	_, err = c.Audit.Record(ctx, q, audit.Entry{
		Entity:   c.Entity,
		EntityID: t.ID,
		Action:   model.AuditUpdate,
		Actor:    t.Actor,
		Changes:  transitionChanges(string(t.From), string(to), t.Set),
		Metadata: metadata,
	})
	if err != nil {
		return "", err
	}

	afterCommit(ctx, func() { c.Metrics.RecordTransition(c.Entity, t.Action) })
	return to, nil
}

// transitionChanges lists the status change and every column written with
// it. Token columns are left out; the audit trail is readable by operators
// who must not be able to redeem from it.
func transitionChanges(from, to string, set map[string]any) []model.Change {
	var changes []model.Change
	if from != to {
		changes = append(changes, model.Change{Field: "status", OldValue: from, NewValue: to})
	}

	cols := make([]string, 0, len(set))
	for col := range set {
		if !strings.HasSuffix(col, "_token") {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	for _, col := range cols {
		changes = append(changes, model.Change{Field: col, NewValue: formatValue(set[col])})
	}
	return changes
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Created records the CREATE audit entry for a freshly inserted entity.
func (c *Core[S]) Created(ctx context.Context, q db.DBTX, id, actor string, value any, metadata map[string]string) error {
	changes, err := audit.Diff(nil, value)
	if err != nil {
		return err
	}
	_, err = c.Audit.Record(ctx, q, audit.Entry{
		Entity:   c.Entity,
		EntityID: id,
		Action:   model.AuditCreate,
		Actor:    actor,
		Changes:  changes,
		Metadata: metadata,
	})
	if err != nil {
		return err
	}
	afterCommit(ctx, func() { c.Metrics.RecordTransition(c.Entity, "create") })
	return nil
}

// ReserveAll reserves every request on behalf of entityID. Either all lines
// are reserved or none: lines taken before a failure are released again.
func (c *Core[S]) ReserveAll(ctx context.Context, q db.DBTX, entityID string, reqs []ledger.ReserveRequest) ([]*model.Reservation, error) {
	taken := make([]*model.Reservation, 0, len(reqs))
	for i, req := range reqs {
		req.Entity = c.Entity
		req.EntityID = entityID

		r, err := c.Ledger.Reserve(ctx, q, req)
		if err != nil {
			for _, t := range taken {
				if rerr := c.Ledger.Release(ctx, q, t.ID); rerr != nil {
					return nil, fmt.Errorf("releasing line after failed reservation: %w", rerr)
				}
			}
			if len(reqs) > 1 {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			return nil, err
		}
		taken = append(taken, r)
	}
	return taken, nil
}

// ReleaseAll releases every reservation in ids.
func (c *Core[S]) ReleaseAll(ctx context.Context, q db.DBTX, ids []string) error {
	for _, id := range ids {
		if err := c.Ledger.Release(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

// Mint issues a handoff token for id.
func (c *Core[S]) Mint(ctx context.Context, q db.DBTX, id string, phase model.Phase) (string, error) {
	return c.Tokens.Mint(ctx, q, c.Entity, id, phase)
}

// Redeem consumes a token issued for this entity type.
func (c *Core[S]) Redeem(ctx context.Context, q db.DBTX, token string) (*model.HandoffToken, error) {
	rec, err := c.Tokens.Redeem(ctx, q, token, c.Entity)
	if err != nil {
		return nil, err
	}
	afterCommit(ctx, func() { c.Metrics.RecordRedeem(c.Entity, string(rec.Phase)) })
	return rec, nil
}

// Peek resolves a token for this entity type without consuming it.
func (c *Core[S]) Peek(ctx context.Context, q db.DBTX, token string) (*model.HandoffToken, error) {
	rec, err := c.Tokens.Peek(ctx, q, token)
	if err != nil {
		return nil, err
	}
	if rec.Entity != c.Entity {
		return nil, model.InvalidToken(fmt.Sprintf("token is not a %s token", c.Entity))
	}
	return rec, nil
}
