package model

import "time"

// TransferStatus is the state of a transfer request.
type TransferStatus string

// Transfer statuses.
const (
	TransferPending   TransferStatus = "PENDING"
	TransferApproved  TransferStatus = "APPROVED"
	TransferRejected  TransferStatus = "REJECTED"
	TransferSent      TransferStatus = "SENT"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// TransferStatuses lists every transfer status in lifecycle order.
var TransferStatuses = []TransferStatus{
	TransferPending, TransferApproved, TransferSent,
	TransferCompleted, TransferRejected, TransferCancelled,
}

// Terminal reports whether no further transition is defined.
func (s TransferStatus) Terminal() bool {
	switch s {
	case TransferCompleted, TransferRejected, TransferCancelled:
		return true
	}
	return false
}

// TransferLine is one item line of a transfer request.
type TransferLine struct {
	InventoryItemID int64  `json:"inventory_item_id"`
	Quantity        int    `json:"quantity"`
	ReservationID   string `json:"reservation_id,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// TransferRequest is a one-shot movement of stock between two warehouses.
type TransferRequest struct {
	ID                     string         `json:"id"`
	Status                 TransferStatus `json:"status"`
	SourceWarehouseID      int64          `json:"source_warehouse_id"`
	DestinationWarehouseID int64          `json:"destination_warehouse_id"`
	RequestedBy            string         `json:"requested_by"`
	ApprovedBy             string         `json:"approved_by,omitempty"`
	RejectedReason         string         `json:"rejected_reason,omitempty"`
	CancelledBy            string         `json:"cancelled_by,omitempty"`
	Notes                  string         `json:"notes,omitempty"`
	Items                  []TransferLine `json:"items"`
	SendToken              string         `json:"send_token,omitempty"`
	ReceivedAt             *time.Time     `json:"received_at,omitempty"`
	ReceivedBy             string         `json:"received_by,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`

	// Joined fields (not always populated).
	SourceWarehouseName      string `json:"source_warehouse_name,omitempty"`
	DestinationWarehouseName string `json:"destination_warehouse_name,omitempty"`
}

// TransferStats holds per-status counts of transfer requests.
type TransferStats struct {
	Total    int                    `json:"total"`
	Open     int                    `json:"open"`
	ByStatus map[TransferStatus]int `json:"by_status"`
}
