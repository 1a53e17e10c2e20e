// Package loan implements the loan workflow: a temporary movement of stock
// to a borrowing warehouse, handed over and returned against scanned tokens.
package loan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
	"github.com/erazemk/premik/internal/workflow"
)

// DefaultDueSoonWindow is how far ahead Stats looks for loans coming due.
const DefaultDueSoonWindow = 7 * 24 * time.Hour

// SweepActor is the actor recorded for transitions made by the overdue sweep.
const SweepActor = "system"

// Service runs loan operations, each in its own transaction.
type Service struct {
	core    *workflow.Core[model.LoanStatus]
	dueSoon time.Duration
}

// NewService returns a loan service. A zero dueSoon uses
// DefaultDueSoonWindow.
func NewService(d workflow.Deps, dueSoon time.Duration) *Service {
	if dueSoon <= 0 {
		dueSoon = DefaultDueSoonWindow
	}
	return &Service{
		core:    workflow.NewCore(d, model.EntityLoan, "loans", workflow.LoanMachine),
		dueSoon: dueSoon,
	}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	ItemID                 int64     `json:"inventory_item_id"`
	Quantity               int       `json:"quantity"`
	SourceWarehouseID      int64     `json:"source_warehouse_id"`
	DestinationWarehouseID int64     `json:"destination_warehouse_id"`
	DueDate                time.Time `json:"due_date"`
	CreatedBy              string    `json:"created_by"`
	Notes                  string    `json:"notes"`
}

// Validate checks the request shape against the current time.
func (r CreateRequest) Validate(now time.Time) error {
	switch {
	case r.ItemID <= 0:
		return model.Validation("inventory_item_id is required")
	case r.Quantity <= 0:
		return model.Validation("quantity must be positive")
	case r.SourceWarehouseID <= 0 || r.DestinationWarehouseID <= 0:
		return model.Validation("source_warehouse_id and destination_warehouse_id are required")
	case r.SourceWarehouseID == r.DestinationWarehouseID:
		return model.Validation("source and destination warehouse must differ")
	case r.CreatedBy == "":
		return model.Validation("created_by is required")
	case !r.DueDate.After(now):
		return model.Validation("due_date must be in the future")
	}
	return nil
}

// Create reserves the loaned quantity and stores a PENDING loan.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Loan, error) {
	now := s.core.Clock.Now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	id, err := s.core.IDs.New()
	if err != nil {
		return nil, fmt.Errorf("generating loan id: %w", err)
	}

	err = s.core.InTx(ctx, "create", func(ctx context.Context, tx db.DBTX) error {
		if _, err := store.RequireActiveWarehouse(ctx, tx, req.SourceWarehouseID); err != nil {
			return err
		}
		if _, err := store.RequireActiveWarehouse(ctx, tx, req.DestinationWarehouseID); err != nil {
			return err
		}

		reservations, err := s.core.ReserveAll(ctx, tx, id, []ledger.ReserveRequest{{
			ItemID:      req.ItemID,
			WarehouseID: req.SourceWarehouseID,
			Quantity:    req.Quantity,
		}})
		if err != nil {
			return err
		}

		l := &model.Loan{
			ID:                     id,
			Status:                 model.LoanPending,
			InventoryItemID:        req.ItemID,
			Quantity:               req.Quantity,
			SourceWarehouseID:      req.SourceWarehouseID,
			DestinationWarehouseID: req.DestinationWarehouseID,
			ReservationID:          reservations[0].ID,
			LoanDate:               now,
			DueDate:                req.DueDate.UTC(),
			CreatedBy:              req.CreatedBy,
			Notes:                  req.Notes,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := store.InsertLoan(ctx, tx, l); err != nil {
			return err
		}
		return s.core.Created(ctx, tx, id, req.CreatedBy, l, nil)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan created", "id", id, "created_by", req.CreatedBy, "due", req.DueDate)
	return s.Get(ctx, id)
}

// Send dispatches a PENDING loan and issues the token the borrower scans.
func (s *Service) Send(ctx context.Context, id, actor string) (*model.Loan, error) {
	err := s.core.InTx(ctx, workflow.ActionSend, func(ctx context.Context, tx db.DBTX) error {
		l, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !workflow.LoanMachine.Allowed(workflow.ActionSend, l.Status) {
			return model.InvalidTransition(model.EntityLoan, id, "cannot send from status %s", l.Status)
		}

		token, err := s.core.Mint(ctx, tx, id, model.PhaseSend)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.LoanStatus]{
			ID: id, Action: workflow.ActionSend, From: l.Status, Actor: actor,
			Set: map[string]any{"send_token": token},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan sent", "id", id, "actor", actor)
	return s.Get(ctx, id)
}

// ConfirmReceipt redeems a SEND token at the borrowing warehouse. A loan
// that went overdue in transit can still be received and stays OVERDUE.
func (s *Service) ConfirmReceipt(ctx context.Context, token, receivedBy string) (*model.Loan, error) {
	var id string
	err := s.core.InTx(ctx, workflow.ActionReceive, func(ctx context.Context, tx db.DBTX) error {
		var err error
		id, err = s.confirmReceipt(ctx, tx, token, receivedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan received", "id", id, "actor", receivedBy)
	return s.Get(ctx, id)
}

func (s *Service) confirmReceipt(ctx context.Context, tx db.DBTX, token, receivedBy string) (string, error) {
	if receivedBy == "" {
		return "", model.Validation("received_by is required")
	}

	rec, err := s.core.Redeem(ctx, tx, token)
	if err != nil {
		return "", err
	}
	if rec.Phase != model.PhaseSend {
		return "", model.InvalidToken("not a send token")
	}

	l, err := load(ctx, tx, rec.EntityID)
	if err != nil {
		return "", err
	}
	if l.Status == model.LoanOverdue {
		received, err := handedOver(ctx, tx, l)
		if err != nil {
			return "", err
		}
		if received {
			return "", model.InvalidTransition(model.EntityLoan, l.ID, "loan was already received")
		}
	}

	_, err = s.core.Apply(ctx, tx, workflow.Transition[model.LoanStatus]{
		ID: l.ID, Action: workflow.ActionReceive, From: l.Status, Actor: receivedBy,
		Set: map[string]any{"received_by": receivedBy, "received_at": s.core.Clock.Now()},
	})
	if err != nil {
		return "", err
	}
	if err := s.core.Ledger.Lend(ctx, tx, l.ReservationID); err != nil {
		return "", err
	}
	return l.ID, nil
}

// InitiateReturn starts the return leg of a received loan and issues the
// token the lender scans when the goods come back.
func (s *Service) InitiateReturn(ctx context.Context, id, actor string) (*model.Loan, error) {
	err := s.core.InTx(ctx, workflow.ActionInitiateReturn, func(ctx context.Context, tx db.DBTX) error {
		l, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !workflow.LoanMachine.Allowed(workflow.ActionInitiateReturn, l.Status) {
			return model.InvalidTransition(model.EntityLoan, id, "cannot return from status %s", l.Status)
		}
		received, err := handedOver(ctx, tx, l)
		if err != nil {
			return err
		}
		if !received {
			return model.InvalidTransition(model.EntityLoan, id, "loan was never received")
		}

		token, err := s.core.Mint(ctx, tx, id, model.PhaseReturn)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.LoanStatus]{
			ID: id, Action: workflow.ActionInitiateReturn, From: l.Status, Actor: actor,
			Set: map[string]any{"return_token": token},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan return initiated", "id", id, "actor", actor)
	return s.Get(ctx, id)
}

// ConfirmReturn redeems a RETURN token at the lending warehouse and puts the
// stock back.
func (s *Service) ConfirmReturn(ctx context.Context, token, confirmedBy string) (*model.Loan, error) {
	var id string
	err := s.core.InTx(ctx, workflow.ActionConfirmReturn, func(ctx context.Context, tx db.DBTX) error {
		var err error
		id, err = s.confirmReturn(ctx, tx, token, confirmedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan returned", "id", id, "actor", confirmedBy)
	return s.Get(ctx, id)
}

func (s *Service) confirmReturn(ctx context.Context, tx db.DBTX, token, confirmedBy string) (string, error) {
	if confirmedBy == "" {
		return "", model.Validation("confirmed_by is required")
	}

	rec, err := s.core.Redeem(ctx, tx, token)
	if err != nil {
		return "", err
	}
	if rec.Phase != model.PhaseReturn {
		return "", model.InvalidToken("not a return token")
	}

	l, err := load(ctx, tx, rec.EntityID)
	if err != nil {
		return "", err
	}
	_, err = s.core.Apply(ctx, tx, workflow.Transition[model.LoanStatus]{
		ID: l.ID, Action: workflow.ActionConfirmReturn, From: l.Status, Actor: confirmedBy,
		Set: map[string]any{"return_confirmed_by": confirmedBy, "return_date": s.core.Clock.Now()},
	})
	if err != nil {
		return "", err
	}
	if err := s.core.Ledger.ReturnCommit(ctx, tx, l.ReservationID); err != nil {
		return "", err
	}
	return l.ID, nil
}

// Cancel withdraws a loan that has not been received and releases its
// stock.
func (s *Service) Cancel(ctx context.Context, id, actor string) (*model.Loan, error) {
	err := s.core.InTx(ctx, workflow.ActionCancel, func(ctx context.Context, tx db.DBTX) error {
		l, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.LoanStatus]{
			ID: id, Action: workflow.ActionCancel, From: l.Status, Actor: actor,
		})
		if err != nil {
			return err
		}
		return s.core.Ledger.Release(ctx, tx, l.ReservationID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan cancelled", "id", id, "actor", actor)
	return s.Get(ctx, id)
}

// ScanResult reports what a scanned loan token did.
type ScanResult struct {
	Phase model.Phase `json:"phase"`
	Loan  *model.Loan `json:"loan"`
}

// Scan is the entry point for a scanned loan code. SEND tokens confirm
// receipt, RETURN tokens confirm the return.
func (s *Service) Scan(ctx context.Context, token, actor string) (*ScanResult, error) {
	var id string
	var phase model.Phase
	err := s.core.InTx(ctx, "scan", func(ctx context.Context, tx db.DBTX) error {
		rec, err := s.core.Peek(ctx, tx, token)
		if err != nil {
			return err
		}
		phase = rec.Phase

		switch rec.Phase {
		case model.PhaseSend:
			id, err = s.confirmReceipt(ctx, tx, token, actor)
		case model.PhaseReturn:
			id, err = s.confirmReturn(ctx, tx, token, actor)
		default:
			err = model.InvalidToken(fmt.Sprintf("unknown phase %q", rec.Phase))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan token scanned", "id", id, "phase", phase, "actor", actor)
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Phase: phase, Loan: l}, nil
}

// handedOver reports whether the borrower has the goods. Legacy loans may
// lack received_at, so the reservation state is the fallback.
func handedOver(ctx context.Context, q db.DBTX, l *model.Loan) (bool, error) {
	if l.Received() {
		return true, nil
	}
	r, err := ledger.Get(ctx, q, l.ReservationID)
	if err != nil {
		return false, err
	}
	return r != nil && r.State == model.ReservationLoaned, nil
}

func load(ctx context.Context, q db.DBTX, id string) (*model.Loan, error) {
	l, err := store.GetLoan(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, model.NotFound(model.EntityLoan, id)
	}
	return l, nil
}
