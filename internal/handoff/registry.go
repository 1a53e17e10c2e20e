package handoff

import (
	"context"
	"fmt"

	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
)

// Registry binds tokens to (entity, phase) pairs and consumes them once.
type Registry struct {
	codec *Codec
	clock clock.Clock
}

// NewRegistry returns a registry signing with codec.
func NewRegistry(codec *Codec, c clock.Clock) *Registry {
	return &Registry{codec: codec, clock: c}
}

// Mint creates and stores a fresh token bound to entityID and phase.
func (r *Registry) Mint(ctx context.Context, q db.DBTX, entity, entityID string, phase model.Phase) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", fmt.Errorf("generating JTI: %w", err)
	}

	now := r.clock.Now()
	if err := store.InsertHandoffToken(ctx, q, &model.HandoffToken{
		JTI:       jti,
		Entity:    entity,
		EntityID:  entityID,
		Phase:     phase,
		CreatedAt: now,
	}); err != nil {
		return "", err
	}

	return r.codec.Sign(jti, entity, entityID, phase, now)
}

// Peek resolves a token to its registry record without consuming it.
func (r *Registry) Peek(ctx context.Context, q db.DBTX, token string) (*model.HandoffToken, error) {
	claims, err := r.codec.Parse(token)
	if err != nil {
		return nil, err
	}

	rec, err := store.GetHandoffToken(ctx, q, claims.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, model.InvalidToken("unknown token")
	}
	if rec.Entity != claims.Entity || rec.EntityID != claims.EntityID || rec.Phase != claims.Phase {
		return nil, model.InvalidToken("token binding mismatch")
	}
	if rec.ConsumedAt != nil {
		return nil, model.InvalidToken("token already used")
	}
	return rec, nil
}

// Redeem consumes a token issued for entity. Concurrent redemptions of the
// same token race on a single conditional update, so exactly one wins.
func (r *Registry) Redeem(ctx context.Context, q db.DBTX, token, entity string) (*model.HandoffToken, error) {
	rec, err := r.Peek(ctx, q, token)
	if err != nil {
		return nil, err
	}
	if rec.Entity != entity {
		return nil, model.InvalidToken(fmt.Sprintf("token is not a %s token", entity))
	}

	now := r.clock.Now()
	ok, err := store.ConsumeHandoffToken(ctx, q, rec.JTI, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.InvalidToken("token already used")
	}
	rec.ConsumedAt = &now
	return rec, nil
}
