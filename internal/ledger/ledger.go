// Package ledger owns per-warehouse item quantities. Workflows never touch
// inventory_items directly; they reserve stock here and later commit,
// lend, return or release the reservation.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/ids"
	"github.com/erazemk/premik/internal/model"
)

// Ledger performs stock operations inside the caller's transaction.
type Ledger struct {
	clock clock.Clock
	ids   ids.Generator
}

// New returns a ledger using the given clock and ID generator.
func New(c clock.Clock, g ids.Generator) *Ledger {
	return &Ledger{clock: c, ids: g}
}

// ReserveRequest asks for quantity of an item held by a source warehouse on
// behalf of a workflow entity.
type ReserveRequest struct {
	ItemID      int64
	WarehouseID int64
	Quantity    int
	Entity      string
	EntityID    string
}

// Reserve decrements the source quantity and records a HELD reservation.
// The check and the decrement are a single statement, so concurrent
// reservations against the same item can never overdraw it.
func (l *Ledger) Reserve(ctx context.Context, q db.DBTX, req ReserveRequest) (*model.Reservation, error) {
	if req.Quantity <= 0 {
		return nil, model.Validation("quantity must be positive, got %d", req.Quantity)
	}

	now := l.clock.Now()
	res, err := q.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = quantity - ?, updated_at = ?
		 WHERE id = ? AND warehouse_id = ? AND quantity >= ?`,
		req.Quantity, now, req.ItemID, req.WarehouseID, req.Quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("decrementing stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("decrementing stock: %w", err)
	}
	if n == 0 {
		return nil, l.diagnoseReserve(ctx, q, req)
	}

	id, err := l.ids.New()
	if err != nil {
		return nil, fmt.Errorf("generating reservation id: %w", err)
	}

	r := &model.Reservation{
		ID:                id,
		ItemID:            req.ItemID,
		SourceWarehouseID: req.WarehouseID,
		Quantity:          req.Quantity,
		State:             model.ReservationHeld,
		Entity:            req.Entity,
		EntityID:          req.EntityID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO reservations (id, item_id, source_warehouse_id, quantity, state, entity, entity_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.SourceWarehouseID, r.Quantity, r.State, r.Entity, r.EntityID, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording reservation: %w", err)
	}
	return r, nil
}

// diagnoseReserve explains why the compare-and-decrement matched no row.
func (l *Ledger) diagnoseReserve(ctx context.Context, q db.DBTX, req ReserveRequest) error {
	var warehouseID int64
	var have int
	err := q.QueryRowContext(ctx,
		`SELECT warehouse_id, quantity FROM inventory_items WHERE id = ?`, req.ItemID,
	).Scan(&warehouseID, &have)
	if err == sql.ErrNoRows {
		return model.NotFound(model.EntityItem, req.ItemID)
	}
	if err != nil {
		return fmt.Errorf("checking available quantity: %w", err)
	}
	if warehouseID != req.WarehouseID {
		return model.Validation("item %d does not belong to warehouse %d", req.ItemID, req.WarehouseID)
	}
	return model.InsufficientStock(req.ItemID, have, req.Quantity)
}

// Release returns a HELD reservation's quantity to the source item.
func (l *Ledger) Release(ctx context.Context, q db.DBTX, reservationID string) error {
	return l.settle(ctx, q, reservationID, model.ReservationHeld, model.ReservationReleased, func(r *model.Reservation) error {
		return l.Adjust(ctx, q, r.ItemID, r.Quantity)
	})
}

// Commit finalizes a HELD reservation by moving its quantity into the
// destination warehouse. BULK stock is merged into the destination row with
// the same SKU (created on first arrival); a UNIQUE item row is re-homed.
func (l *Ledger) Commit(ctx context.Context, q db.DBTX, reservationID string, destinationWarehouseID int64) error {
	return l.settle(ctx, q, reservationID, model.ReservationHeld, model.ReservationCommitted, func(r *model.Reservation) error {
		return l.receive(ctx, q, r, destinationWarehouseID)
	})
}

// Lend marks a HELD reservation as checked out on loan. The source-side
// decrement stands until ReturnCommit.
func (l *Ledger) Lend(ctx context.Context, q db.DBTX, reservationID string) error {
	return l.settle(ctx, q, reservationID, model.ReservationHeld, model.ReservationLoaned, nil)
}

// ReturnCommit restores the source quantity of a LOANED reservation.
func (l *Ledger) ReturnCommit(ctx context.Context, q db.DBTX, reservationID string) error {
	return l.settle(ctx, q, reservationID, model.ReservationLoaned, model.ReservationReturned, func(r *model.Reservation) error {
		return l.Adjust(ctx, q, r.ItemID, r.Quantity)
	})
}

// settle moves a reservation from one state to another and applies the stock
// effect once. Retrying an operation that already reached `to` is a no-op.
func (l *Ledger) settle(ctx context.Context, q db.DBTX, id string, from, to model.ReservationState, effect func(*model.Reservation) error) error {
	r, err := Get(ctx, q, id)
	if err != nil {
		return err
	}
	if r == nil {
		return model.NotFound("reservation", id)
	}
	if r.State == to {
		return nil
	}
	if r.State != from {
		return model.InvalidTransition("reservation", id, "reservation is %s, expected %s", r.State, from)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE reservations SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		to, l.clock.Now(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}
	if n == 0 {
		return model.InvalidTransition("reservation", id, "reservation changed concurrently")
	}

	if effect == nil {
		return nil
	}
	return effect(r)
}

// CheckDestination reports whether item itemID can be received into the
// destination warehouse. A UNIQUE item cannot join a warehouse that already
// holds its SKU, and stock cannot merge into a row of a different item type.
func (l *Ledger) CheckDestination(ctx context.Context, q db.DBTX, itemID, destinationWarehouseID int64) error {
	src, err := loadItem(ctx, q, itemID)
	if err != nil {
		return err
	}
	return checkDestination(ctx, q, src, destinationWarehouseID)
}

type itemRow struct {
	id          int64
	sku         string
	name        string
	itemType    model.ItemType
	minQuantity int
}

func loadItem(ctx context.Context, q db.DBTX, id int64) (*itemRow, error) {
	it := &itemRow{id: id}
	err := q.QueryRowContext(ctx,
		`SELECT sku, name, item_type, min_quantity FROM inventory_items WHERE id = ?`, id,
	).Scan(&it.sku, &it.name, &it.itemType, &it.minQuantity)
	if err == sql.ErrNoRows {
		return nil, model.NotFound(model.EntityItem, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	return it, nil
}

func checkDestination(ctx context.Context, q db.DBTX, src *itemRow, destinationWarehouseID int64) error {
	var destID int64
	var destType model.ItemType
	err := q.QueryRowContext(ctx,
		`SELECT id, item_type FROM inventory_items WHERE sku = ? AND warehouse_id = ?`,
		src.sku, destinationWarehouseID,
	).Scan(&destID, &destType)
	if err == sql.ErrNoRows || (err == nil && destID == src.id) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking destination stock: %w", err)
	}

	switch {
	case src.itemType == model.ItemTypeUnique:
		return model.Validation("item %d: warehouse %d already holds unique SKU %s", src.id, destinationWarehouseID, src.sku)
	case destType != src.itemType:
		return model.Validation("item %d: warehouse %d holds SKU %s as %s, not %s",
			src.id, destinationWarehouseID, src.sku, destType, src.itemType)
	}
	return nil
}

func (l *Ledger) receive(ctx context.Context, q db.DBTX, r *model.Reservation, destinationWarehouseID int64) error {
	src, err := loadItem(ctx, q, r.ItemID)
	if err != nil {
		return err
	}
	if err := checkDestination(ctx, q, src, destinationWarehouseID); err != nil {
		return err
	}

	now := l.clock.Now()
	if src.itemType == model.ItemTypeUnique {
		_, err = q.ExecContext(ctx,
			`UPDATE inventory_items SET warehouse_id = ?, quantity = ?, updated_at = ? WHERE id = ?`,
			destinationWarehouseID, r.Quantity, now, r.ItemID,
		)
		if err != nil {
			return fmt.Errorf("re-homing unique item: %w", err)
		}
		return nil
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO inventory_items (sku, name, item_type, quantity, warehouse_id, min_quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (sku, warehouse_id) DO UPDATE SET quantity = quantity + excluded.quantity, updated_at = excluded.updated_at`,
		src.sku, src.name, src.itemType, r.Quantity, destinationWarehouseID, src.minQuantity, now, now,
	)
	if err != nil {
		return fmt.Errorf("updating destination stock: %w", err)
	}
	return nil
}

// Adjust changes an item's quantity by delta. The result may not drop below
// zero, and UNIQUE items may not exceed one unit.
func (l *Ledger) Adjust(ctx context.Context, q db.DBTX, itemID int64, delta int) error {
	if delta == 0 {
		return model.Validation("delta must be non-zero")
	}

	res, err := q.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ? AND quantity + ? >= 0 AND (item_type = 'BULK' OR quantity + ? <= 1)`,
		delta, l.clock.Now(), itemID, delta, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting inventory: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current int
	err = q.QueryRowContext(ctx, `SELECT quantity FROM inventory_items WHERE id = ?`, itemID).Scan(&current)
	if err == sql.ErrNoRows {
		return model.NotFound(model.EntityItem, itemID)
	}
	if err != nil {
		return fmt.Errorf("checking current quantity: %w", err)
	}
	return model.Validation("adjustment of item %d out of range: %d %+d", itemID, current, delta)
}
