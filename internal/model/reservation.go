package model

import "time"

// ReservationState is the lifecycle state of a stock hold.
type ReservationState string

// Reservation states. HELD is the only non-final state for transfers; loans
// move HELD -> LOANED -> RETURNED.
const (
	ReservationHeld      ReservationState = "HELD"
	ReservationCommitted ReservationState = "COMMITTED"
	ReservationReleased  ReservationState = "RELEASED"
	ReservationLoaned    ReservationState = "LOANED"
	ReservationReturned  ReservationState = "RETURNED"
)

// Reservation is a provisional hold on source-warehouse quantity.
type Reservation struct {
	ID                string           `json:"id"`
	ItemID            int64            `json:"item_id"`
	SourceWarehouseID int64            `json:"source_warehouse_id"`
	Quantity          int              `json:"quantity"`
	State             ReservationState `json:"state"`
	Entity            string           `json:"entity"`
	EntityID          string           `json:"entity_id"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Entity names used by reservations, handoff tokens and audit entries.
const (
	EntityTransfer  = "transfer"
	EntityLoan      = "loan"
	EntityItem      = "inventory_item"
	EntityWarehouse = "warehouse"
)
