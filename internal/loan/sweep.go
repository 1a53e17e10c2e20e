package loan

import (
	"context"
	"log/slog"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
	"github.com/erazemk/premik/internal/workflow"
)

// overdueCandidates are the statuses the sweep may move to OVERDUE.
var overdueCandidates = []model.LoanStatus{model.LoanSent, model.LoanReceived, model.LoanActive}

// SweepResult summarizes one overdue sweep.
type SweepResult struct {
	Checked int `json:"checked"`
	Marked  int `json:"marked"`
	Failed  int `json:"failed"`
}

// SweepOverdue marks every loan past its due date as OVERDUE. Each loan is
// marked in its own transaction; a failure is logged and the sweep moves on.
func (s *Service) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	dues, err := store.ListLoanDues(ctx, s.core.DB, overdueCandidates...)
	if err != nil {
		return nil, err
	}

	now := s.core.Clock.Now()
	result := &SweepResult{}
	for _, d := range dues {
		if !d.DueDate.Before(now) {
			continue
		}
		result.Checked++

		err := s.core.InTx(ctx, workflow.ActionMarkOverdue, func(ctx context.Context, tx db.DBTX) error {
			_, err := s.core.Apply(ctx, tx, workflow.Transition[model.LoanStatus]{
				ID: d.ID, Action: workflow.ActionMarkOverdue, From: d.Status, Actor: SweepActor,
				Metadata: map[string]string{"due_date": d.DueDate.UTC().Format("2006-01-02T15:04:05Z")},
			})
			return err
		})
		if err != nil {
			result.Failed++
			slog.Warn("marking loan overdue", "id", d.ID, "error", err)
			continue
		}
		result.Marked++
	}

	s.core.Metrics.RecordSweep(result.Marked, result.Failed)
	if result.Marked > 0 || result.Failed > 0 {
		slog.Info("overdue sweep finished", "marked", result.Marked, "failed", result.Failed)
	}
	return result, nil
}
