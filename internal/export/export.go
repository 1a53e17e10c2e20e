// Package export writes spreadsheet-friendly CSV: semicolon separated,
// every field quoted, UTF-8 with a byte order mark.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/erazemk/premik/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// writer quotes every field. encoding/csv only quotes when needed, which
// spreadsheet imports misread for values like leading zeros.
type writer struct {
	out io.WriteCloser
	err error
}

func newWriter(w io.Writer) *writer {
	return &writer{out: transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())}
}

func (w *writer) row(fields ...string) {
	if w.err != nil {
		return
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, w.err = io.WriteString(w.out, b.String())
}

func (w *writer) close() error {
	if err := w.out.Close(); err != nil && w.err == nil {
		w.err = err
	}
	if w.err != nil {
		return fmt.Errorf("writing csv: %w", w.err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// WriteTransfers writes one row per transfer line.
func WriteTransfers(w io.Writer, transfers []model.TransferRequest) error {
	cw := newWriter(w)
	cw.row("id", "status", "source_warehouse", "destination_warehouse", "requested_by", "approved_by",
		"item_id", "item", "quantity", "created_at", "received_at", "received_by")
	for _, t := range transfers {
		for _, line := range t.Items {
			cw.row(t.ID, string(t.Status), t.SourceWarehouseName, t.DestinationWarehouseName,
				t.RequestedBy, t.ApprovedBy, itoa(line.InventoryItemID), line.ItemName,
				strconv.Itoa(line.Quantity), formatTime(t.CreatedAt), formatTimePtr(t.ReceivedAt), t.ReceivedBy)
		}
	}
	return cw.close()
}

// WriteLoans writes one row per loan.
func WriteLoans(w io.Writer, loans []model.Loan) error {
	cw := newWriter(w)
	cw.row("id", "status", "item_id", "item", "quantity", "source_warehouse", "destination_warehouse",
		"loan_date", "due_date", "return_date", "created_by", "received_by", "return_confirmed_by")
	for _, l := range loans {
		cw.row(l.ID, string(l.Status), itoa(l.InventoryItemID), l.ItemName, strconv.Itoa(l.Quantity),
			l.SourceWarehouseName, l.DestinationWarehouseName, formatTime(l.LoanDate), formatTime(l.DueDate),
			formatTimePtr(l.ReturnDate), l.CreatedBy, l.ReceivedBy, l.ReturnConfirmedBy)
	}
	return cw.close()
}

// WriteAudit writes one row per field change. Entries without changes get a
// single row with empty change columns.
func WriteAudit(w io.Writer, entries []model.AuditEntry) error {
	cw := newWriter(w)
	cw.row("id", "recorded_at", "entity", "entity_id", "action", "actor", "field", "old_value", "new_value")
	for _, e := range entries {
		base := []string{e.ID, formatTime(e.RecordedAt), e.Entity, e.EntityID, string(e.Action), e.Actor}
		if len(e.Changes) == 0 {
			cw.row(append(base, "", "", "")...)
			continue
		}
		for _, c := range e.Changes {
			cw.row(append(append([]string{}, base...), c.Field, c.OldValue, c.NewValue)...)
		}
	}
	return cw.close()
}
