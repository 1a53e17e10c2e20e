package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
	"github.com/erazemk/premik/internal/workflow"
)

type fixture struct {
	deps workflow.Deps
	svc  *Service
	a, b *model.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	deps := workflow.NewTestDeps(t, clock.NewFixed(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	a, err := store.CreateWarehouse(ctx, deps.DB, "Ljubljana")
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	b, _ := store.CreateWarehouse(ctx, deps.DB, "Maribor")

	return &fixture{deps: deps, svc: NewService(deps), a: a, b: b}
}

func (f *fixture) item(t *testing.T, sku string, typ model.ItemType, qty int) *model.InventoryItem {
	t.Helper()
	item, err := store.CreateItem(context.Background(), f.deps.DB, store.NewItem{
		SKU: sku, Name: sku, ItemType: typ, Quantity: qty, WarehouseID: f.a.ID,
	}, f.deps.Clock.Now())
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

// stock returns the quantity of sku held by a warehouse, 0 if it has none.
func (f *fixture) stock(t *testing.T, sku string, warehouseID int64) int {
	t.Helper()
	items, err := store.ListItems(context.Background(), f.deps.DB, sku)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	for _, it := range items {
		if it.WarehouseID == warehouseID {
			return it.Quantity
		}
	}
	return 0
}

func (f *fixture) create(t *testing.T, lines ...LineRequest) *model.TransferRequest {
	t.Helper()
	tr, err := f.svc.Create(context.Background(), CreateRequest{
		SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, Items: lines, RequestedBy: "ana",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tr
}

func (f *fixture) sent(t *testing.T, lines ...LineRequest) *model.TransferRequest {
	t.Helper()
	ctx := context.Background()
	tr := f.create(t, lines...)
	if _, err := f.svc.Approve(ctx, tr.ID, "bor"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	tr, err := f.svc.Send(ctx, tr.ID, "ana")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	return tr
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "PALLET", model.ItemTypeBulk, 10)

	tr := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 5})
	if tr.Status != model.TransferPending {
		t.Fatalf("expected PENDING, got %s", tr.Status)
	}
	if f.stock(t, "PALLET", f.a.ID) != 5 {
		t.Errorf("expected 5 left at source after reserve")
	}
	if tr.Items[0].ReservationID == "" || tr.Items[0].ItemName != "PALLET" {
		t.Errorf("unexpected line: %+v", tr.Items[0])
	}

	tr, err := f.svc.Approve(ctx, tr.ID, "bor")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if tr.Status != model.TransferApproved || tr.ApprovedBy != "bor" {
		t.Fatalf("unexpected transfer after approve: %+v", tr)
	}

	tr, err = f.svc.Send(ctx, tr.ID, "ana")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if tr.Status != model.TransferSent || tr.SendToken == "" {
		t.Fatalf("unexpected transfer after send: %+v", tr)
	}

	tr, err = f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene")
	if err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	if tr.Status != model.TransferCompleted || tr.ReceivedBy != "cene" || tr.ReceivedAt == nil {
		t.Fatalf("unexpected transfer after receipt: %+v", tr)
	}

	if got := f.stock(t, "PALLET", f.a.ID); got != 5 {
		t.Errorf("expected 5 at source, got %d", got)
	}
	if got := f.stock(t, "PALLET", f.b.ID); got != 5 {
		t.Errorf("expected 5 at destination, got %d", got)
	}

	entries, err := audit.Query(ctx, f.deps.DB, audit.Filter{Entity: model.EntityTransfer, EntityID: tr.ID})
	if err != nil {
		t.Fatalf("audit.Query: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(entries))
	}
	if entries[3].Action != model.AuditCreate || entries[0].Actor != "cene" {
		t.Errorf("unexpected audit order: first=%+v last=%+v", entries[3], entries[0])
	}
}

func TestSecondTransferMergesIntoDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "PALLET", model.ItemTypeBulk, 10)

	for i := 0; i < 2; i++ {
		tr := f.sent(t, LineRequest{InventoryItemID: item.ID, Quantity: 3})
		if _, err := f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene"); err != nil {
			t.Fatalf("ConfirmReceipt: %v", err)
		}
	}

	if got := f.stock(t, "PALLET", f.b.ID); got != 6 {
		t.Errorf("expected 6 at destination, got %d", got)
	}
	items, _ := store.ListItemsByWarehouse(ctx, f.deps.DB, f.b.ID)
	if len(items) != 1 {
		t.Errorf("expected one merged destination row, got %d", len(items))
	}
}

func TestUniqueItemIsRehomed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	laptop := f.item(t, "LAPTOP-0042", model.ItemTypeUnique, 1)

	tr := f.sent(t, LineRequest{InventoryItemID: laptop.ID, Quantity: 1})
	if _, err := f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene"); err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}

	got, _ := store.GetItem(ctx, f.deps.DB, laptop.ID)
	if got.WarehouseID != f.b.ID || got.Quantity != 1 {
		t.Errorf("expected item re-homed to destination with 1 unit, got %+v", got)
	}
}

func TestCreateRejectsDestinationConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	laptop := f.item(t, "LAPTOP-0042", model.ItemTypeUnique, 1)
	drill := f.item(t, "DRILL", model.ItemTypeBulk, 5)
	for _, sku := range []string{"LAPTOP-0042", "DRILL"} {
		if _, err := store.CreateItem(ctx, f.deps.DB, store.NewItem{
			SKU: sku, Name: sku, ItemType: model.ItemTypeUnique, Quantity: 1, WarehouseID: f.b.ID,
		}, f.deps.Clock.Now()); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	tests := []struct {
		name string
		item *model.InventoryItem
	}{
		{"unique sku already at destination", laptop},
		{"bulk onto unique row", drill},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, CreateRequest{
				SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, RequestedBy: "ana",
				Items: []LineRequest{{InventoryItemID: tt.item.ID, Quantity: 1}},
			})
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("expected Validation, got %v", err)
			}
			if f.stock(t, tt.item.SKU, f.a.ID) != tt.item.Quantity {
				t.Error("source stock changed after rejected create")
			}
		})
	}

	list, _ := f.svc.List(ctx, Filter{})
	if len(list) != 0 {
		t.Errorf("expected no transfers, got %d", len(list))
	}
}

func TestReceiptConflictKeepsTransferSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	laptop := f.item(t, "LAPTOP-0042", model.ItemTypeUnique, 1)
	tr := f.sent(t, LineRequest{InventoryItemID: laptop.ID, Quantity: 1})

	// Another unit with the same SKU shows up at the destination while the
	// transfer is in flight.
	if _, err := store.CreateItem(ctx, f.deps.DB, store.NewItem{
		SKU: "LAPTOP-0042", Name: "LAPTOP-0042", ItemType: model.ItemTypeUnique, Quantity: 1, WarehouseID: f.b.ID,
	}, f.deps.Clock.Now()); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene"); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("attempt %d: expected Validation, got %v", i+1, err)
		}
	}

	got, err := f.svc.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.TransferSent || got.ReceivedAt != nil {
		t.Errorf("expected transfer to stay SENT, got %+v", got)
	}
	r, _ := ledger.Get(ctx, f.deps.DB, got.Items[0].ReservationID)
	if r == nil || r.State != model.ReservationHeld {
		t.Errorf("expected reservation still HELD, got %+v", r)
	}
	item, _ := store.GetItem(ctx, f.deps.DB, laptop.ID)
	if item.WarehouseID != f.a.ID {
		t.Errorf("expected laptop to stay at source, got warehouse %d", item.WarehouseID)
	}
}

func TestCreateInsufficientStockReservesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bolts := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	nuts := f.item(t, "NUT", model.ItemTypeBulk, 2)

	_, err := f.svc.Create(ctx, CreateRequest{
		SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, RequestedBy: "ana",
		Items: []LineRequest{{InventoryItemID: bolts.ID, Quantity: 4}, {InventoryItemID: nuts.ID, Quantity: 3}},
	})
	if !errors.Is(err, model.ErrInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}

	if f.stock(t, "BOLT", f.a.ID) != 10 || f.stock(t, "NUT", f.a.ID) != 2 {
		t.Error("stock changed after failed create")
	}
	list, _ := f.svc.List(ctx, Filter{})
	if len(list) != 0 {
		t.Errorf("expected no transfers, got %d", len(list))
	}
	entries, _ := audit.Query(ctx, f.deps.DB, audit.Filter{})
	if len(entries) != 0 {
		t.Errorf("expected no audit entries, got %d", len(entries))
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	line := []LineRequest{{InventoryItemID: item.ID, Quantity: 1}}

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"same warehouse", CreateRequest{SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.a.ID, Items: line, RequestedBy: "ana"}, model.ErrValidation},
		{"no items", CreateRequest{SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, RequestedBy: "ana"}, model.ErrValidation},
		{"zero quantity", CreateRequest{SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, Items: []LineRequest{{InventoryItemID: item.ID}}, RequestedBy: "ana"}, model.ErrValidation},
		{"no requester", CreateRequest{SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, Items: line}, model.ErrValidation},
		{"unknown destination", CreateRequest{SourceWarehouseID: f.a.ID, DestinationWarehouseID: 999, Items: line, RequestedBy: "ana"}, model.ErrNotFound},
		{"unknown item", CreateRequest{SourceWarehouseID: f.a.ID, DestinationWarehouseID: f.b.ID, Items: []LineRequest{{InventoryItemID: 999, Quantity: 1}}, RequestedBy: "ana"}, model.ErrNotFound},
		{"item elsewhere", CreateRequest{SourceWarehouseID: f.b.ID, DestinationWarehouseID: f.a.ID, Items: line, RequestedBy: "ana"}, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRejectReleasesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	tr := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 4})

	rejected, err := f.svc.Reject(ctx, tr.ID, "bor", "not needed")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != model.TransferRejected || rejected.RejectedReason != "not needed" {
		t.Fatalf("unexpected transfer: %+v", rejected)
	}
	if got := f.stock(t, "BOLT", f.a.ID); got != 10 {
		t.Fatalf("expected 10 after reject, got %d", got)
	}

	if _, err := f.svc.Reject(ctx, tr.ID, "bor", "again"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected InvalidTransition on second reject, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, tr.ID, "ana"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected InvalidTransition on cancel after reject, got %v", err)
	}
	if got := f.stock(t, "BOLT", f.a.ID); got != 10 {
		t.Errorf("expected stock still 10, got %d", got)
	}

	entries, _ := audit.Query(ctx, f.deps.DB, audit.Filter{EntityID: tr.ID})
	if len(entries) != 2 || entries[0].Metadata["reason"] != "not needed" {
		t.Errorf("unexpected audit entries: %+v", entries)
	}
}

func TestDoubleApproveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	tr := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 1})

	if _, err := f.svc.Approve(ctx, tr.ID, "bor"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	_, err := f.svc.Approve(ctx, tr.ID, "bor")
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	var derr *model.Error
	if !errors.As(err, &derr) || derr.ID != tr.ID {
		t.Errorf("expected error to name %s, got %v", tr.ID, err)
	}
}

func TestPreconditionFailuresLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	tr := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 2})

	if _, err := f.svc.Send(ctx, tr.ID, "ana"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition sending a PENDING transfer, got %v", err)
	}

	got, _ := f.svc.Get(ctx, tr.ID)
	if got.Status != model.TransferPending || got.SendToken != "" {
		t.Errorf("transfer changed: %+v", got)
	}
	var tokens int
	f.deps.DB.QueryRow(`SELECT COUNT(*) FROM handoff_tokens`).Scan(&tokens)
	if tokens != 0 {
		t.Errorf("expected no tokens minted, got %d", tokens)
	}

	if _, err := f.svc.Approve(ctx, "missing", "bor"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)

	pending := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 2})
	approved := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 3})
	if _, err := f.svc.Approve(ctx, approved.ID, "bor"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	for _, id := range []string{pending.ID, approved.ID} {
		tr, err := f.svc.Cancel(ctx, id, "ana")
		if err != nil {
			t.Fatalf("Cancel(%s): %v", id, err)
		}
		if tr.Status != model.TransferCancelled || tr.CancelledBy != "ana" {
			t.Errorf("unexpected transfer: %+v", tr)
		}
	}
	if got := f.stock(t, "BOLT", f.a.ID); got != 10 {
		t.Errorf("expected all stock released, got %d", got)
	}

	sent := f.sent(t, LineRequest{InventoryItemID: item.ID, Quantity: 1})
	if _, err := f.svc.Cancel(ctx, sent.ID, "ana"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected SENT transfer to refuse cancel, got %v", err)
	}
}

func TestTokenReplayAndForgery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	tr := f.sent(t, LineRequest{InventoryItemID: item.ID, Quantity: 5})

	if _, err := f.svc.ConfirmReceipt(ctx, tr.SendToken+"x", "cene"); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected InvalidToken for tampered token, got %v", err)
	}
	if _, err := f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene"); err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	if _, err := f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene"); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected InvalidToken on replay, got %v", err)
	}
	if got := f.stock(t, "BOLT", f.b.ID); got != 5 {
		t.Errorf("expected 5 at destination after replay, got %d", got)
	}
}

func TestConcurrentApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	tr := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 4})

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = f.svc.Approve(ctx, tr.ID, "bor")
			} else {
				_, errs[i] = f.svc.Reject(ctx, tr.ID, "bor", "race")
			}
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, model.ErrInvalidTransition):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	got, _ := f.svc.Get(ctx, tr.ID)
	want := 6
	if got.Status == model.TransferRejected {
		want = 10
	}
	if s := f.stock(t, "BOLT", f.a.ID); s != want {
		t.Errorf("status %s: expected %d at source, got %d", got.Status, want, s)
	}
}

func TestConcurrentReceiptCommitsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)
	tr := f.sent(t, LineRequest{InventoryItemID: item.ID, Quantity: 5})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Scan(ctx, tr.SendToken, "cene"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful scan, got %d", wins)
	}
	if got := f.stock(t, "BOLT", f.b.ID); got != 5 {
		t.Errorf("expected 5 at destination, got %d", got)
	}
}

func TestOutstandingIsConserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)

	check := func(stage string) {
		t.Helper()
		n, err := ledger.Outstanding(ctx, f.deps.DB, "BOLT")
		if err != nil {
			t.Fatalf("Outstanding: %v", err)
		}
		if n != 10 {
			t.Errorf("%s: expected 10 outstanding, got %d", stage, n)
		}
	}

	tr := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 5})
	check("created")
	f.svc.Approve(ctx, tr.ID, "bor")
	check("approved")
	tr, _ = f.svc.Send(ctx, tr.ID, "ana")
	check("sent")
	f.svc.ConfirmReceipt(ctx, tr.SendToken, "cene")
	check("completed")

	other := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 2})
	f.svc.Reject(ctx, other.ID, "bor", "no")
	check("rejected")
}

func TestScanRejectsForeignTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loanToken, err := f.deps.Tokens.Mint(ctx, f.deps.DB, model.EntityLoan, "L1", model.PhaseSend)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := f.svc.Scan(ctx, loanToken, "cene"); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected InvalidToken for loan token, got %v", err)
	}

	returnToken, _ := f.deps.Tokens.Mint(ctx, f.deps.DB, model.EntityTransfer, "T1", model.PhaseReturn)
	if _, err := f.svc.Scan(ctx, returnToken, "cene"); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected InvalidToken for return phase, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "BOLT", model.ItemTypeBulk, 10)

	first := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 1})
	second := f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 1})
	f.create(t, LineRequest{InventoryItemID: item.ID, Quantity: 1})
	f.svc.Approve(ctx, second.ID, "bor")
	f.svc.Cancel(ctx, first.ID, "ana")

	all, err := f.svc.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[2].ID != first.ID {
		t.Fatalf("expected 3 transfers newest first, got %d", len(all))
	}

	approved, _ := f.svc.List(ctx, Filter{Status: model.TransferApproved})
	if len(approved) != 1 || approved[0].ID != second.ID {
		t.Errorf("unexpected approved list: %+v", approved)
	}
	page, _ := f.svc.List(ctx, Filter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != second.ID {
		t.Errorf("unexpected page: %+v", page)
	}
	byItem, _ := f.svc.List(ctx, Filter{ItemID: item.ID, WarehouseID: f.b.ID})
	if len(byItem) != 3 {
		t.Errorf("expected 3 by item and warehouse, got %d", len(byItem))
	}
	if _, err := f.svc.List(ctx, Filter{Status: "LOST"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.ByStatus[model.TransferPending] != 1 ||
		stats.ByStatus[model.TransferApproved] != 1 || stats.ByStatus[model.TransferCancelled] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Open != 2 {
		t.Errorf("expected 2 open transfers, got %d", stats.Open)
	}
	if _, ok := stats.ByStatus[model.TransferCompleted]; !ok {
		t.Error("expected zero-count statuses to be present")
	}
}
