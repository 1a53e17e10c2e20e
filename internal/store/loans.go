package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

// LoanFilter narrows ListLoans. Zero values mean "any".
type LoanFilter struct {
	Statuses    []model.LoanStatus
	WarehouseID int64 // matches source or destination
	ItemID      int64
	CreatedBy   string
	Limit       int
	Offset      int
}

// InsertLoan stores a new loan.
func InsertLoan(ctx context.Context, q db.DBTX, l *model.Loan) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO loans
		 (id, status, inventory_item_id, quantity, source_warehouse_id, destination_warehouse_id, reservation_id,
		  loan_date, due_date, created_by, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Status, l.InventoryItemID, l.Quantity, l.SourceWarehouseID, l.DestinationWarehouseID, l.ReservationID,
		l.LoanDate, l.DueDate, l.CreatedBy, l.Notes, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting loan: %w", err)
	}
	return nil
}

const loanColumns = `l.id, l.status, l.inventory_item_id, l.quantity, l.source_warehouse_id, l.destination_warehouse_id,
	l.reservation_id, l.loan_date, l.due_date, l.return_date, l.send_token, l.return_token, l.received_at,
	l.received_by, l.return_confirmed_by, l.created_by, l.notes, l.created_at, l.updated_at,
	i.name AS item_name, sw.name AS source_name, dw.name AS destination_name`

const loanFrom = ` FROM loans l
	JOIN inventory_items i ON i.id = l.inventory_item_id
	JOIN warehouses sw ON sw.id = l.source_warehouse_id
	JOIN warehouses dw ON dw.id = l.destination_warehouse_id`

func scanLoan(row rowScanner) (*model.Loan, error) {
	l := &model.Loan{}
	var returnDate, receivedAt sql.NullTime
	var sendToken, returnToken, receivedBy, returnConfirmedBy, notes sql.NullString
	err := row.Scan(&l.ID, &l.Status, &l.InventoryItemID, &l.Quantity, &l.SourceWarehouseID, &l.DestinationWarehouseID,
		&l.ReservationID, &l.LoanDate, &l.DueDate, &returnDate, &sendToken, &returnToken, &receivedAt,
		&receivedBy, &returnConfirmedBy, &l.CreatedBy, &notes, &l.CreatedAt, &l.UpdatedAt,
		&l.ItemName, &l.SourceWarehouseName, &l.DestinationWarehouseName)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		l.ReturnDate = &returnDate.Time
	}
	if receivedAt.Valid {
		l.ReceivedAt = &receivedAt.Time
	}
	l.SendToken = sendToken.String
	l.ReturnToken = returnToken.String
	l.ReceivedBy = receivedBy.String
	l.ReturnConfirmedBy = returnConfirmedBy.String
	l.Notes = notes.String
	return l, nil
}

// GetLoan returns a loan by ID, or nil if unknown.
func GetLoan(ctx context.Context, q db.DBTX, id string) (*model.Loan, error) {
	l, err := scanLoan(q.QueryRowContext(ctx, `SELECT `+loanColumns+loanFrom+` WHERE l.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return l, nil
}

// ListLoans returns loans newest first.
func ListLoans(ctx context.Context, q db.DBTX, f LoanFilter) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + loanFrom + ` WHERE 1=1`
	var args []any

	if len(f.Statuses) > 0 {
		query += ` AND l.status IN (?` + strings.Repeat(", ?", len(f.Statuses)-1) + `)`
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.WarehouseID > 0 {
		query += ` AND (l.source_warehouse_id = ? OR l.destination_warehouse_id = ?)`
		args = append(args, f.WarehouseID, f.WarehouseID)
	}
	if f.ItemID > 0 {
		query += ` AND l.inventory_item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.CreatedBy != "" {
		query += ` AND l.created_by = ?`
		args = append(args, f.CreatedBy)
	}

	query += ` ORDER BY l.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

// LoanDue is the minimal projection used by stats and the overdue sweep.
type LoanDue struct {
	ID      string
	Status  model.LoanStatus
	DueDate time.Time
}

// ListLoanDues returns id, status and due date of every loan in the given
// statuses (all loans when none are given).
func ListLoanDues(ctx context.Context, q db.DBTX, statuses ...model.LoanStatus) ([]LoanDue, error) {
	query := `SELECT id, status, due_date FROM loans`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loan due dates: %w", err)
	}
	defer rows.Close()

	var dues []LoanDue
	for rows.Next() {
		var d LoanDue
		if err := rows.Scan(&d.ID, &d.Status, &d.DueDate); err != nil {
			return nil, fmt.Errorf("scanning loan due date: %w", err)
		}
		dues = append(dues, d)
	}
	return dues, rows.Err()
}
