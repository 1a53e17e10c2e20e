package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

// NewItem describes an inventory item to register at a warehouse.
type NewItem struct {
	SKU         string
	Name        string
	ItemType    model.ItemType
	Quantity    int
	WarehouseID int64
	MinQuantity int
}

// Validate checks the item invariants before insertion.
func (n NewItem) Validate() error {
	switch {
	case n.SKU == "" || n.Name == "":
		return model.Validation("sku and name are required")
	case !n.ItemType.Valid():
		return model.Validation("item_type must be UNIQUE or BULK")
	case n.Quantity < 0 || n.MinQuantity < 0:
		return model.Validation("quantities must not be negative")
	case n.ItemType == model.ItemTypeUnique && n.Quantity > 1:
		return model.Validation("unique items hold at most one unit")
	case n.WarehouseID <= 0:
		return model.Validation("warehouse_id is required")
	}
	return nil
}

// CreateItem registers an item and its initial stock at a warehouse.
func CreateItem(ctx context.Context, q db.DBTX, n NewItem, now time.Time) (*model.InventoryItem, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if _, err := RequireActiveWarehouse(ctx, q, n.WarehouseID); err != nil {
		return nil, err
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO inventory_items (sku, name, item_type, quantity, warehouse_id, min_quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.SKU, n.Name, n.ItemType, n.Quantity, n.WarehouseID, n.MinQuantity, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

const itemColumns = `i.id, i.sku, i.name, i.item_type, i.quantity, i.warehouse_id, i.min_quantity,
	i.created_at, i.updated_at, w.name AS warehouse_name`

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, q db.DBTX, id int64) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	err := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM inventory_items i
		 JOIN warehouses w ON w.id = i.warehouse_id
		 WHERE i.id = ?`, id,
	).Scan(&item.ID, &item.SKU, &item.Name, &item.ItemType, &item.Quantity, &item.WarehouseID,
		&item.MinQuantity, &item.CreatedAt, &item.UpdatedAt, &item.WarehouseName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItemsByWarehouse returns the items held by a warehouse.
func ListItemsByWarehouse(ctx context.Context, q db.DBTX, warehouseID int64) ([]model.InventoryItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+`
		 FROM inventory_items i
		 JOIN warehouses w ON w.id = i.warehouse_id
		 WHERE i.warehouse_id = ?
		 ORDER BY i.name, i.sku`, warehouseID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing warehouse items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListItems returns all items, optionally filtered by SKU.
func ListItems(ctx context.Context, q db.DBTX, sku string) ([]model.InventoryItem, error) {
	query := `SELECT ` + itemColumns + `
	          FROM inventory_items i
	          JOIN warehouses w ON w.id = i.warehouse_id`
	var args []any
	if sku != "" {
		query += ` WHERE i.sku = ?`
		args = append(args, sku)
	}
	query += ` ORDER BY i.name, w.name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.ItemType, &item.Quantity, &item.WarehouseID,
			&item.MinQuantity, &item.CreatedAt, &item.UpdatedAt, &item.WarehouseName); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// StockLevel is the total on-hand quantity of one SKU across warehouses.
type StockLevel struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Warehouses int    `json:"warehouses"`
}

// ListStockLevels returns the inventory overview grouped by SKU.
func ListStockLevels(ctx context.Context, q db.DBTX) ([]StockLevel, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT sku, MIN(name), SUM(quantity), COUNT(DISTINCT warehouse_id)
		 FROM inventory_items
		 GROUP BY sku
		 ORDER BY sku`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.SKU, &l.Name, &l.Quantity, &l.Warehouses); err != nil {
			return nil, fmt.Errorf("scanning stock level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
