package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("approving: %w", InvalidTransition(EntityTransfer, "01J", "cannot approve from status %s", TransferSent))

	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("expected wrapped error to match ErrInvalidTransition")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect match with ErrNotFound")
	}
	if KindOf(err) != KindInvalidTransition {
		t.Errorf("expected INVALID_TRANSITION, got %q", KindOf(err))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if k := KindOf(errors.New("disk full")); k != "" {
		t.Errorf("expected empty kind, got %q", k)
	}
	if k := KindOf(nil); k != "" {
		t.Errorf("expected empty kind for nil, got %q", k)
	}
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock(7, 2, 5)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expected *Error")
	}
	if e.Entity != EntityItem || e.ID != "7" {
		t.Errorf("unexpected subject: %s %s", e.Entity, e.ID)
	}
	want := "INSUFFICIENT_STOCK: inventory_item 7: insufficient quantity: have 2, need 5"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestStatusHelpers(t *testing.T) {
	for _, s := range []TransferStatus{TransferCompleted, TransferRejected, TransferCancelled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if TransferSent.Terminal() {
		t.Error("SENT is not terminal")
	}
	if !LoanActive.CheckedOut() || !LoanReceived.CheckedOut() || LoanOverdue.CheckedOut() {
		t.Error("only RECEIVED and ACTIVE are checked out")
	}
}
