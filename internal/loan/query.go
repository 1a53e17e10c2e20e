package loan

import (
	"context"
	"slices"
	"time"

	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
)

// Filter narrows List. Zero values mean "any". OverdueOnly matches loans
// marked OVERDUE as well as those past due that the sweep has not reached.
type Filter struct {
	Status      model.LoanStatus
	WarehouseID int64
	ItemID      int64
	CreatedBy   string
	OverdueOnly bool
	Limit       int
	Offset      int
}

// Get returns a loan by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Loan, error) {
	return load(ctx, s.core.DB, id)
}

// List returns loans newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Loan, error) {
	if f.Status != "" && !slices.Contains(model.LoanStatuses, f.Status) {
		return nil, model.Validation("unknown loan status %q", f.Status)
	}

	sf := store.LoanFilter{
		WarehouseID: f.WarehouseID,
		ItemID:      f.ItemID,
		CreatedBy:   f.CreatedBy,
		Limit:       f.Limit,
		Offset:      f.Offset,
	}
	if f.Status != "" {
		sf.Statuses = []model.LoanStatus{f.Status}
	}
	if !f.OverdueOnly {
		loans, err := store.ListLoans(ctx, s.core.DB, sf)
		if err != nil {
			return nil, err
		}
		if loans == nil {
			loans = []model.Loan{}
		}
		return loans, nil
	}

	// Past-due detection needs the clock, so paging happens here.
	sf.Limit, sf.Offset = 0, 0
	loans, err := store.ListLoans(ctx, s.core.DB, sf)
	if err != nil {
		return nil, err
	}

	now := s.core.Clock.Now()
	overdue := []model.Loan{}
	skipped := 0
	for _, l := range loans {
		if !isOverdue(l.Status, l.DueDate, now) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		overdue = append(overdue, l)
		if f.Limit > 0 && len(overdue) == f.Limit {
			break
		}
	}
	return overdue, nil
}

// Stats projects current loan state. Nothing is persisted.
func (s *Service) Stats(ctx context.Context) (*model.LoanStats, error) {
	dues, err := store.ListLoanDues(ctx, s.core.DB)
	if err != nil {
		return nil, err
	}

	now := s.core.Clock.Now()
	horizon := now.Add(s.dueSoon)
	stats := &model.LoanStats{ByStatus: make(map[model.LoanStatus]int, len(model.LoanStatuses))}
	for _, status := range model.LoanStatuses {
		stats.ByStatus[status] = 0
	}

	for _, d := range dues {
		stats.Total++
		stats.ByStatus[d.Status]++
		if !d.Status.Terminal() {
			stats.Open++
		}
		if isOverdue(d.Status, d.DueDate, now) {
			stats.Overdue++
		}
		if dueSoonCandidate(d.Status) && d.DueDate.After(now) && !d.DueDate.After(horizon) {
			stats.DueSoon++
		}
	}
	return stats, nil
}

// isOverdue reports whether a loan is overdue, either marked so or past due
// while still out.
func isOverdue(status model.LoanStatus, due, now time.Time) bool {
	if status == model.LoanOverdue {
		return true
	}
	return slices.Contains(overdueCandidates, status) && due.Before(now)
}

func dueSoonCandidate(status model.LoanStatus) bool {
	switch status {
	case model.LoanPending, model.LoanSent, model.LoanReceived, model.LoanActive:
		return true
	}
	return false
}
