package model

import "time"

// LoanStatus is the state of a loan.
type LoanStatus string

// Loan statuses. ACTIVE is kept for loans recorded before the handoff
// pipeline existed and behaves like RECEIVED.
const (
	LoanPending       LoanStatus = "PENDING"
	LoanSent          LoanStatus = "SENT"
	LoanReceived      LoanStatus = "RECEIVED"
	LoanActive        LoanStatus = "ACTIVE"
	LoanOverdue       LoanStatus = "OVERDUE"
	LoanReturnPending LoanStatus = "RETURN_PENDING"
	LoanReturned      LoanStatus = "RETURNED"
	LoanCancelled     LoanStatus = "CANCELLED"
)

// LoanStatuses lists every loan status in lifecycle order.
var LoanStatuses = []LoanStatus{
	LoanPending, LoanSent, LoanReceived, LoanActive, LoanOverdue,
	LoanReturnPending, LoanReturned, LoanCancelled,
}

// Terminal reports whether no further transition is defined.
func (s LoanStatus) Terminal() bool {
	return s == LoanReturned || s == LoanCancelled
}

// CheckedOut reports whether the asset is at the borrowing warehouse.
func (s LoanStatus) CheckedOut() bool {
	return s == LoanReceived || s == LoanActive
}

// Loan is a temporary movement of stock to a borrowing warehouse.
type Loan struct {
	ID                     string     `json:"id"`
	Status                 LoanStatus `json:"status"`
	InventoryItemID        int64      `json:"inventory_item_id"`
	Quantity               int        `json:"quantity"`
	SourceWarehouseID      int64      `json:"source_warehouse_id"`
	DestinationWarehouseID int64      `json:"destination_warehouse_id"`
	ReservationID          string     `json:"reservation_id"`
	LoanDate               time.Time  `json:"loan_date"`
	DueDate                time.Time  `json:"due_date"`
	ReturnDate             *time.Time `json:"return_date,omitempty"`
	SendToken              string     `json:"send_token,omitempty"`
	ReturnToken            string     `json:"return_token,omitempty"`
	ReceivedAt             *time.Time `json:"received_at,omitempty"`
	ReceivedBy             string     `json:"received_by,omitempty"`
	ReturnConfirmedBy      string     `json:"return_confirmed_by,omitempty"`
	CreatedBy              string     `json:"created_by"`
	Notes                  string     `json:"notes,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	ItemName                 string `json:"item_name,omitempty"`
	SourceWarehouseName      string `json:"source_warehouse_name,omitempty"`
	DestinationWarehouseName string `json:"destination_warehouse_name,omitempty"`
}

// Received reports whether the borrowing warehouse confirmed the handoff.
func (l *Loan) Received() bool {
	return l.ReceivedAt != nil || l.Status.CheckedOut()
}

// LoanStats is a read-side projection over current loan state.
type LoanStats struct {
	Total    int                `json:"total"`
	Open     int                `json:"open"`
	ByStatus map[LoanStatus]int `json:"by_status"`
	Overdue  int                `json:"overdue"`
	DueSoon  int                `json:"due_soon"`
}
