package workflow

import (
	"testing"

	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/handoff"
	"github.com/erazemk/premik/internal/ids"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/metrics"
)

// NewTestDeps wires a full set of dependencies around a fresh in-memory
// database and the given clock.
func NewTestDeps(t *testing.T, c clock.Clock) Deps {
	t.Helper()

	codec, err := handoff.NewCodec("test-handoff-secret")
	if err != nil {
		t.Fatalf("creating handoff codec: %v", err)
	}
	gen := ids.NewULID()

	return Deps{
		DB:      db.NewTestDB(t),
		Ledger:  ledger.New(c, gen),
		Tokens:  handoff.NewRegistry(codec, c),
		Audit:   audit.New(c, gen),
		Metrics: metrics.New(),
		Clock:   c,
		IDs:     gen,
	}
}
