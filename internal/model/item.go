package model

import "time"

// ItemType distinguishes individually tracked assets from bulk stock.
type ItemType string

// Item types.
const (
	ItemTypeUnique ItemType = "UNIQUE"
	ItemTypeBulk   ItemType = "BULK"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeUnique || t == ItemTypeBulk
}

// InventoryItem is the stock of one article (identified by SKU) held by one
// warehouse. UNIQUE items never hold more than one unit.
type InventoryItem struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	ItemType    ItemType  `json:"item_type"`
	Quantity    int       `json:"quantity"`
	WarehouseID int64     `json:"warehouse_id"`
	MinQuantity int       `json:"min_quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	WarehouseName string `json:"warehouse_name,omitempty"`
}

// LowStock reports whether the item has dropped below its minimum quantity.
func (i InventoryItem) LowStock() bool {
	return i.Quantity < i.MinQuantity
}
