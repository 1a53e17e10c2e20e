package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

const reservationColumns = `id, item_id, source_warehouse_id, quantity, state, entity, entity_id, created_at, updated_at`

// Get returns a reservation by ID, or nil if unknown.
func Get(ctx context.Context, q db.DBTX, id string) (*model.Reservation, error) {
	r := &model.Reservation{}
	err := q.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id,
	).Scan(&r.ID, &r.ItemID, &r.SourceWarehouseID, &r.Quantity, &r.State, &r.Entity, &r.EntityID, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reservation: %w", err)
	}
	return r, nil
}

// ListByEntity returns the reservations held for a workflow entity.
func ListByEntity(ctx context.Context, q db.DBTX, entity, entityID string) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE entity = ? AND entity_id = ? ORDER BY id`,
		entity, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.ID, &r.ItemID, &r.SourceWarehouseID, &r.Quantity, &r.State, &r.Entity, &r.EntityID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Outstanding returns the total quantity of a SKU the organisation owns:
// stock on hand in every warehouse plus quantity held for pending requests
// or out on loan. Workflow operations never change it.
func Outstanding(ctx context.Context, q db.DBTX, sku string) (int, error) {
	var onHand, held int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM inventory_items WHERE sku = ?`, sku,
	).Scan(&onHand)
	if err != nil {
		return 0, fmt.Errorf("summing stock: %w", err)
	}

	err = q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(r.quantity), 0)
		 FROM reservations r
		 JOIN inventory_items i ON i.id = r.item_id
		 WHERE i.sku = ? AND r.state IN ('HELD', 'LOANED')`, sku,
	).Scan(&held)
	if err != nil {
		return 0, fmt.Errorf("summing reservations: %w", err)
	}
	return onHand + held, nil
}
