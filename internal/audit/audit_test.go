package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/ids"
	"github.com/erazemk/premik/internal/model"
)

func newTrail() (*Trail, *clock.Fixed) {
	c := clock.NewFixed(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	return New(c, ids.NewULID()), c
}

func TestRecordAndQuery(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	trail, c := newTrail()

	_, err := trail.Record(ctx, database, Entry{
		Entity: model.EntityTransfer, EntityID: "T1", Action: model.AuditCreate, Actor: "ana",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	c.Advance(time.Minute)
	_, err = trail.Record(ctx, database, Entry{
		Entity: model.EntityTransfer, EntityID: "T1", Action: model.AuditUpdate, Actor: "bor",
		Changes:  []model.Change{{Field: "status", OldValue: "PENDING", NewValue: "REJECTED"}},
		Metadata: map[string]string{"reason": "duplicate"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	c.Advance(time.Minute)
	_, err = trail.Record(ctx, database, Entry{
		Entity: model.EntityLoan, EntityID: "L1", Action: model.AuditCreate, Actor: "ana",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	all, err := Query(ctx, database, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Entity != model.EntityLoan {
		t.Errorf("expected newest entry first, got %+v", all[0])
	}

	byEntity, _ := Query(ctx, database, Filter{Entity: model.EntityTransfer, EntityID: "T1"})
	if len(byEntity) != 2 {
		t.Fatalf("expected 2 transfer entries, got %d", len(byEntity))
	}
	update := byEntity[0]
	if update.Action != model.AuditUpdate || update.Metadata["reason"] != "duplicate" {
		t.Errorf("unexpected update entry: %+v", update)
	}
	if len(update.Changes) != 1 || update.Changes[0].NewValue != "REJECTED" {
		t.Errorf("unexpected changes: %+v", update.Changes)
	}

	byActor, _ := Query(ctx, database, Filter{Actor: "ana"})
	if len(byActor) != 2 {
		t.Errorf("expected 2 entries by ana, got %d", len(byActor))
	}

	start := time.Date(2026, 5, 1, 8, 0, 30, 0, time.UTC)
	ranged, _ := Query(ctx, database, Filter{From: start, To: start.Add(time.Minute)})
	if len(ranged) != 1 || ranged[0].Actor != "bor" {
		t.Errorf("expected only bor's entry in range, got %+v", ranged)
	}

	limited, _ := Query(ctx, database, Filter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1 entry with limit, got %d", len(limited))
	}
}

func TestRecordValidation(t *testing.T) {
	database := db.NewTestDB(t)
	trail, _ := newTrail()

	tests := []struct {
		name  string
		entry Entry
	}{
		{"missing entity", Entry{EntityID: "1", Action: model.AuditCreate, Actor: "a"}},
		{"missing actor", Entry{Entity: "x", EntityID: "1", Action: model.AuditCreate}},
		{"bad action", Entry{Entity: "x", EntityID: "1", Action: "MOVE", Actor: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trail.Record(context.Background(), database, tt.entry)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPurge(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	trail, _ := newTrail()

	for i := 0; i < 3; i++ {
		if _, err := trail.Record(ctx, database, Entry{
			Entity: model.EntityWarehouse, EntityID: "1", Action: model.AuditUpdate, Actor: "admin",
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := Purge(ctx, database)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 purged, got %d", n)
	}

	left, _ := Query(ctx, database, Filter{})
	if len(left) != 0 {
		t.Errorf("expected empty trail, got %d", len(left))
	}
}

func TestDiff(t *testing.T) {
	type row struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		Quantity   int    `json:"quantity"`
		Notes      string `json:"notes,omitempty"`
		SourceName string `json:"source_name"`
		UpdatedAt  string `json:"updated_at"`
	}

	before := row{ID: "1", Status: "PENDING", Quantity: 5, SourceName: "A", UpdatedAt: "t1"}
	after := row{ID: "1", Status: "APPROVED", Quantity: 5, Notes: "ok", SourceName: "B", UpdatedAt: "t2"}

	changes, err := Diff(before, after)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	want := []model.Change{
		{Field: "notes", OldValue: "", NewValue: "ok"},
		{Field: "status", OldValue: "PENDING", NewValue: "APPROVED"},
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %+v", len(want), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d: expected %+v, got %+v", i, want[i], changes[i])
		}
	}
}

func TestDiffAgainstNil(t *testing.T) {
	changes, err := Diff(nil, map[string]any{"name": "Central", "id": 3})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 1 || changes[0].Field != "name" || changes[0].NewValue != "Central" {
		t.Errorf("unexpected changes: %+v", changes)
	}
}
