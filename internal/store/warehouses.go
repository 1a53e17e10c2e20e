package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

// CreateWarehouse creates a new warehouse.
func CreateWarehouse(ctx context.Context, q db.DBTX, name string) (*model.Warehouse, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO warehouses (name) VALUES (?)`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating warehouse: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting warehouse id: %w", err)
	}

	return GetWarehouse(ctx, q, id)
}

// GetWarehouse returns a warehouse by ID, or nil if it does not exist.
func GetWarehouse(ctx context.Context, q db.DBTX, id int64) (*model.Warehouse, error) {
	w := &model.Warehouse{}
	var deletedAt sql.NullTime
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at, deleted_at FROM warehouses WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.CreatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting warehouse: %w", err)
	}
	if deletedAt.Valid {
		w.DeletedAt = &deletedAt.Time
	}
	return w, nil
}

// ListWarehouses returns all non-deleted warehouses.
func ListWarehouses(ctx context.Context, q db.DBTX) ([]model.Warehouse, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, created_at FROM warehouses WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []model.Warehouse
	for rows.Next() {
		var w model.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

// UpdateWarehouse renames a warehouse.
func UpdateWarehouse(ctx context.Context, q db.DBTX, id int64, name string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE warehouses SET name = ? WHERE id = ? AND deleted_at IS NULL`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating warehouse: %w", err)
	}
	return nil
}

// DeleteWarehouse soft-deletes a warehouse. Fails if it still holds stock.
func DeleteWarehouse(ctx context.Context, q db.DBTX, id int64) error {
	var held int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM inventory_items WHERE warehouse_id = ?`, id,
	).Scan(&held)
	if err != nil {
		return fmt.Errorf("checking warehouse stock: %w", err)
	}
	if held > 0 {
		return model.Validation("cannot delete warehouse %d: still holds %d units", id, held)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE warehouses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting warehouse: %w", err)
	}
	return nil
}

// RequireActiveWarehouse returns the warehouse or a typed error when it is
// unknown or deleted.
func RequireActiveWarehouse(ctx context.Context, q db.DBTX, id int64) (*model.Warehouse, error) {
	w, err := GetWarehouse(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, model.NotFound(model.EntityWarehouse, id)
	}
	if w.DeletedAt != nil {
		return nil, model.Validation("warehouse %d is deleted", id)
	}
	return w, nil
}
