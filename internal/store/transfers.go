package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/model"
)

// TransferFilter narrows ListTransfers. Zero values mean "any".
type TransferFilter struct {
	Status      model.TransferStatus
	WarehouseID int64 // matches source or destination
	ItemID      int64
	RequestedBy string
	Limit       int
	Offset      int
}

// InsertTransfer stores a new transfer request and its item lines.
func InsertTransfer(ctx context.Context, q db.DBTX, t *model.TransferRequest) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transfer_requests
		 (id, status, source_warehouse_id, destination_warehouse_id, requested_by, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Status, t.SourceWarehouseID, t.DestinationWarehouseID, t.RequestedBy, t.Notes, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting transfer: %w", err)
	}

	for i, line := range t.Items {
		_, err := q.ExecContext(ctx,
			`INSERT INTO transfer_lines (transfer_id, position, inventory_item_id, quantity, reservation_id)
			 VALUES (?, ?, ?, ?, ?)`,
			t.ID, i, line.InventoryItemID, line.Quantity, line.ReservationID,
		)
		if err != nil {
			return fmt.Errorf("inserting transfer line %d: %w", i, err)
		}
	}
	return nil
}

const transferColumns = `t.id, t.status, t.source_warehouse_id, t.destination_warehouse_id, t.requested_by,
	t.approved_by, t.rejected_reason, t.cancelled_by, t.notes, t.send_token, t.received_at, t.received_by,
	t.created_at, t.updated_at, sw.name AS source_name, dw.name AS destination_name`

const transferFrom = ` FROM transfer_requests t
	JOIN warehouses sw ON sw.id = t.source_warehouse_id
	JOIN warehouses dw ON dw.id = t.destination_warehouse_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*model.TransferRequest, error) {
	t := &model.TransferRequest{}
	var approvedBy, rejectedReason, cancelledBy, notes, sendToken, receivedBy sql.NullString
	var receivedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Status, &t.SourceWarehouseID, &t.DestinationWarehouseID, &t.RequestedBy,
		&approvedBy, &rejectedReason, &cancelledBy, &notes, &sendToken, &receivedAt, &receivedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.SourceWarehouseName, &t.DestinationWarehouseName)
	if err != nil {
		return nil, err
	}
	t.ApprovedBy = approvedBy.String
	t.RejectedReason = rejectedReason.String
	t.CancelledBy = cancelledBy.String
	t.Notes = notes.String
	t.SendToken = sendToken.String
	t.ReceivedBy = receivedBy.String
	if receivedAt.Valid {
		t.ReceivedAt = &receivedAt.Time
	}
	return t, nil
}

// GetTransfer returns a transfer request with its lines, or nil if unknown.
func GetTransfer(ctx context.Context, q db.DBTX, id string) (*model.TransferRequest, error) {
	t, err := scanTransfer(q.QueryRowContext(ctx, `SELECT `+transferColumns+transferFrom+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	if err := loadTransferLines(ctx, q, []*model.TransferRequest{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransfers returns transfer requests newest first.
func ListTransfers(ctx context.Context, q db.DBTX, f TransferFilter) ([]model.TransferRequest, error) {
	query := `SELECT ` + transferColumns + transferFrom + ` WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	if f.WarehouseID > 0 {
		query += ` AND (t.source_warehouse_id = ? OR t.destination_warehouse_id = ?)`
		args = append(args, f.WarehouseID, f.WarehouseID)
	}
	if f.ItemID > 0 {
		query += ` AND EXISTS (SELECT 1 FROM transfer_lines l WHERE l.transfer_id = t.id AND l.inventory_item_id = ?)`
		args = append(args, f.ItemID)
	}
	if f.RequestedBy != "" {
		query += ` AND t.requested_by = ?`
		args = append(args, f.RequestedBy)
	}

	// IDs are ULIDs, so ordering by id is creation order.
	query += ` ORDER BY t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}

	var ptrs []*model.TransferRequest
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		ptrs = append(ptrs, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	rows.Close()

	if err := loadTransferLines(ctx, q, ptrs); err != nil {
		return nil, err
	}

	transfers := make([]model.TransferRequest, 0, len(ptrs))
	for _, t := range ptrs {
		transfers = append(transfers, *t)
	}
	return transfers, nil
}

func loadTransferLines(ctx context.Context, q db.DBTX, transfers []*model.TransferRequest) error {
	if len(transfers) == 0 {
		return nil
	}

	byID := make(map[string]*model.TransferRequest, len(transfers))
	placeholders := make([]string, 0, len(transfers))
	args := make([]any, 0, len(transfers))
	for _, t := range transfers {
		byID[t.ID] = t
		t.Items = []model.TransferLine{}
		placeholders = append(placeholders, "?")
		args = append(args, t.ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT l.transfer_id, l.inventory_item_id, l.quantity, l.reservation_id, i.name
		 FROM transfer_lines l
		 JOIN inventory_items i ON i.id = l.inventory_item_id
		 WHERE l.transfer_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY l.transfer_id, l.position`, args...,
	)
	if err != nil {
		return fmt.Errorf("loading transfer lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var transferID string
		var line model.TransferLine
		if err := rows.Scan(&transferID, &line.InventoryItemID, &line.Quantity, &line.ReservationID, &line.ItemName); err != nil {
			return fmt.Errorf("scanning transfer line: %w", err)
		}
		if t, ok := byID[transferID]; ok {
			t.Items = append(t.Items, line)
		}
	}
	return rows.Err()
}

// CountTransfersByStatus returns the number of transfer requests per status.
func CountTransfersByStatus(ctx context.Context, q db.DBTX) (map[model.TransferStatus]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT status, COUNT(*) FROM transfer_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting transfers: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.TransferStatus]int)
	for rows.Next() {
		var status model.TransferStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning transfer count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
