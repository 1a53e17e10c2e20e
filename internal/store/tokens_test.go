package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

func TestInsertAndConsumeHandoffToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := InsertHandoffToken(ctx, database, &model.HandoffToken{
		JTI:       "jti-1",
		Entity:    model.EntityTransfer,
		EntityID:  "T1",
		Phase:     model.PhaseSend,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("InsertHandoffToken: %v", err)
	}

	tok, err := GetHandoffToken(ctx, database, "jti-1")
	if err != nil {
		t.Fatalf("GetHandoffToken: %v", err)
	}
	if tok == nil || tok.EntityID != "T1" || tok.ConsumedAt != nil {
		t.Fatalf("unexpected token: %+v", tok)
	}

	ok, err := ConsumeHandoffToken(ctx, database, "jti-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ConsumeHandoffToken: %v", err)
	}
	if !ok {
		t.Fatal("expected first consume to succeed")
	}

	ok, err = ConsumeHandoffToken(ctx, database, "jti-1", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("ConsumeHandoffToken: %v", err)
	}
	if ok {
		t.Error("expected second consume to fail")
	}

	tok, _ = GetHandoffToken(ctx, database, "jti-1")
	if tok.ConsumedAt == nil {
		t.Error("expected consumed_at to be set")
	}
}

func TestHandoffTokenUnknown(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tok, err := GetHandoffToken(ctx, database, "missing")
	if err != nil {
		t.Fatalf("GetHandoffToken: %v", err)
	}
	if tok != nil {
		t.Errorf("expected nil, got %+v", tok)
	}

	ok, err := ConsumeHandoffToken(ctx, database, "missing", time.Now())
	if err != nil {
		t.Fatalf("ConsumeHandoffToken: %v", err)
	}
	if ok {
		t.Error("expected consume of unknown token to fail")
	}
}
