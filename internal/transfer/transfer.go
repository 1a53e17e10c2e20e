// Package transfer implements the transfer request workflow: a one-shot
// movement of stock from a source to a destination warehouse, confirmed at
// the destination by scanning a handoff token.
package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
	"github.com/erazemk/premik/internal/workflow"
)

// Service runs transfer operations, each in its own transaction.
type Service struct {
	core *workflow.Core[model.TransferStatus]
}

// NewService returns a transfer service.
func NewService(d workflow.Deps) *Service {
	return &Service{core: workflow.NewCore(d, model.EntityTransfer, "transfer_requests", workflow.TransferMachine)}
}

// LineRequest is one requested item line.
type LineRequest struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	Quantity        int   `json:"quantity"`
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	SourceWarehouseID      int64         `json:"source_warehouse_id"`
	DestinationWarehouseID int64         `json:"destination_warehouse_id"`
	Items                  []LineRequest `json:"items"`
	RequestedBy            string        `json:"requested_by"`
	Notes                  string        `json:"notes"`
}

// Validate checks the request shape. Stock and warehouse state are checked
// inside the transaction.
func (r CreateRequest) Validate() error {
	switch {
	case r.SourceWarehouseID <= 0 || r.DestinationWarehouseID <= 0:
		return model.Validation("source_warehouse_id and destination_warehouse_id are required")
	case r.SourceWarehouseID == r.DestinationWarehouseID:
		return model.Validation("source and destination warehouse must differ")
	case len(r.Items) == 0:
		return model.Validation("at least one item is required")
	case r.RequestedBy == "":
		return model.Validation("requested_by is required")
	}
	for i, line := range r.Items {
		if line.InventoryItemID <= 0 {
			return model.Validation("item %d: inventory_item_id is required", i+1)
		}
		if line.Quantity <= 0 {
			return model.Validation("item %d: quantity must be positive", i+1)
		}
	}
	return nil
}

// Create reserves every requested line and stores a PENDING transfer.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.TransferRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.core.IDs.New()
	if err != nil {
		return nil, fmt.Errorf("generating transfer id: %w", err)
	}

	err = s.core.InTx(ctx, "create", func(ctx context.Context, tx db.DBTX) error {
		if _, err := store.RequireActiveWarehouse(ctx, tx, req.SourceWarehouseID); err != nil {
			return err
		}
		if _, err := store.RequireActiveWarehouse(ctx, tx, req.DestinationWarehouseID); err != nil {
			return err
		}

		reqs := make([]ledger.ReserveRequest, len(req.Items))
		for i, line := range req.Items {
			if err := s.core.Ledger.CheckDestination(ctx, tx, line.InventoryItemID, req.DestinationWarehouseID); err != nil {
				return err
			}
			reqs[i] = ledger.ReserveRequest{
				ItemID:      line.InventoryItemID,
				WarehouseID: req.SourceWarehouseID,
				Quantity:    line.Quantity,
			}
		}
		reservations, err := s.core.ReserveAll(ctx, tx, id, reqs)
		if err != nil {
			return err
		}

		now := s.core.Clock.Now()
		t := &model.TransferRequest{
			ID:                     id,
			Status:                 model.TransferPending,
			SourceWarehouseID:      req.SourceWarehouseID,
			DestinationWarehouseID: req.DestinationWarehouseID,
			RequestedBy:            req.RequestedBy,
			Notes:                  req.Notes,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		for i, line := range req.Items {
			t.Items = append(t.Items, model.TransferLine{
				InventoryItemID: line.InventoryItemID,
				Quantity:        line.Quantity,
				ReservationID:   reservations[i].ID,
			})
		}
		if err := store.InsertTransfer(ctx, tx, t); err != nil {
			return err
		}
		return s.core.Created(ctx, tx, id, req.RequestedBy, t, nil)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer created", "id", id, "requested_by", req.RequestedBy, "lines", len(req.Items))
	return s.Get(ctx, id)
}

// Approve moves a PENDING transfer to APPROVED.
func (s *Service) Approve(ctx context.Context, id, approverID string) (*model.TransferRequest, error) {
	err := s.core.InTx(ctx, workflow.ActionApprove, func(ctx context.Context, tx db.DBTX) error {
		t, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.TransferStatus]{
			ID: id, Action: workflow.ActionApprove, From: t.Status, Actor: approverID,
			Set: map[string]any{"approved_by": approverID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer approved", "id", id, "actor", approverID)
	return s.Get(ctx, id)
}

// Reject moves a PENDING transfer to REJECTED and releases its stock.
func (s *Service) Reject(ctx context.Context, id, approverID, reason string) (*model.TransferRequest, error) {
	err := s.core.InTx(ctx, workflow.ActionReject, func(ctx context.Context, tx db.DBTX) error {
		t, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.TransferStatus]{
			ID: id, Action: workflow.ActionReject, From: t.Status, Actor: approverID,
			Set:      map[string]any{"rejected_reason": reason},
			Metadata: map[string]string{"reason": reason},
		})
		if err != nil {
			return err
		}
		return s.core.ReleaseAll(ctx, tx, reservationIDs(t))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer rejected", "id", id, "actor", approverID, "reason", reason)
	return s.Get(ctx, id)
}

// Send marks an APPROVED transfer as dispatched and issues the token the
// destination scans on arrival.
func (s *Service) Send(ctx context.Context, id, actor string) (*model.TransferRequest, error) {
	err := s.core.InTx(ctx, workflow.ActionSend, func(ctx context.Context, tx db.DBTX) error {
		t, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !workflow.TransferMachine.Allowed(workflow.ActionSend, t.Status) {
			return model.InvalidTransition(model.EntityTransfer, id, "cannot send from status %s", t.Status)
		}

		token, err := s.core.Mint(ctx, tx, id, model.PhaseSend)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.TransferStatus]{
			ID: id, Action: workflow.ActionSend, From: t.Status, Actor: actor,
			Set: map[string]any{"send_token": token},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer sent", "id", id, "actor", actor)
	return s.Get(ctx, id)
}

// ConfirmReceipt redeems a SEND token at the destination, moves the stock
// and completes the transfer.
func (s *Service) ConfirmReceipt(ctx context.Context, token, receivedBy string) (*model.TransferRequest, error) {
	var id string
	err := s.core.InTx(ctx, workflow.ActionReceive, func(ctx context.Context, tx db.DBTX) error {
		var err error
		id, err = s.confirmReceipt(ctx, tx, token, receivedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer received", "id", id, "actor", receivedBy)
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

	t, err := load(ctx, tx, rec.EntityID)
	if err != nil {
		return "", err
	}
	_, err = s.core.Apply(ctx, tx, workflow.Transition[model.TransferStatus]{
		ID: t.ID, Action: workflow.ActionReceive, From: t.Status, Actor: receivedBy,
		Set: map[string]any{"received_by": receivedBy, "received_at": s.core.Clock.Now()},
	})
	if err != nil {
		return "", err
	}

	for _, line := range t.Items {
		if err := s.core.Ledger.Commit(ctx, tx, line.ReservationID, t.DestinationWarehouseID); err != nil {
			return "", fmt.Errorf("committing item %d: %w", line.InventoryItemID, err)
		}
	}
	return t.ID, nil
}

// Cancel withdraws a PENDING or APPROVED transfer and releases its stock.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (*model.TransferRequest, error) {
	err := s.core.InTx(ctx, workflow.ActionCancel, func(ctx context.Context, tx db.DBTX) error {
		t, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = s.core.Apply(ctx, tx, workflow.Transition[model.TransferStatus]{
			ID: id, Action: workflow.ActionCancel, From: t.Status, Actor: actorID,
			Set: map[string]any{"cancelled_by": actorID},
		})
		if err != nil {
			return err
		}
		return s.core.ReleaseAll(ctx, tx, reservationIDs(t))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer cancelled", "id", id, "actor", actorID)
	return s.Get(ctx, id)
}

// Scan is the entry point for a scanned code. Only SEND tokens mean
// anything for transfers.
func (s *Service) Scan(ctx context.Context, token, actor string) (*model.TransferRequest, error) {
	var id string
	err := s.core.InTx(ctx, "scan", func(ctx context.Context, tx db.DBTX) error {
		rec, err := s.core.Peek(ctx, tx, token)
		if err != nil {
			return err
		}
		if rec.Phase != model.PhaseSend {
			return model.InvalidToken(fmt.Sprintf("unexpected %s token for a transfer", rec.Phase))
		}
		id, err = s.confirmReceipt(ctx, tx, token, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer received by scan", "id", id, "actor", actor)
	return s.Get(ctx, id)
}

func load(ctx context.Context, q db.DBTX, id string) (*model.TransferRequest, error) {
	t, err := store.GetTransfer(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, model.NotFound(model.EntityTransfer, id)
	}
	return t, nil
}

func reservationIDs(t *model.TransferRequest) []string {
	ids := make([]string, len(t.Items))
	for i, line := range t.Items {
		ids[i] = line.ReservationID
	}
	return ids
}
