package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/loan"
	"github.com/erazemk/premik/internal/metrics"
	"github.com/erazemk/premik/internal/transfer"
)

// Deps are the services the API exposes.
type Deps struct {
	DB        *sql.DB
	Transfers *transfer.Service
	Loans     *loan.Service
	Ledger    *ledger.Ledger
	Audit     *audit.Trail
	Clock     clock.Clock
	Metrics   *metrics.Metrics // may be nil
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	transfersHandler := &TransfersHandler{Transfers: d.Transfers}
	loansHandler := &LoansHandler{Loans: d.Loans}
	auditHandler := &AuditHandler{DB: d.DB, Trail: d.Audit}
	inventoryHandler := &InventoryHandler{DB: d.DB, Ledger: d.Ledger, Trail: d.Audit, Clock: d.Clock}

	// Transfers.
	mux.HandleFunc("POST /api/transfers", transfersHandler.Create)
	mux.HandleFunc("GET /api/transfers", transfersHandler.List)
	mux.HandleFunc("GET /api/transfers/stats", transfersHandler.Stats)
	mux.HandleFunc("GET /api/transfers/export.csv", transfersHandler.Export)
	mux.HandleFunc("GET /api/transfers/{id}", transfersHandler.Get)
	mux.HandleFunc("POST /api/transfers/{id}/approve", transfersHandler.Approve)
	mux.HandleFunc("POST /api/transfers/{id}/reject", transfersHandler.Reject)
	mux.HandleFunc("POST /api/transfers/{id}/send", transfersHandler.Send)
	mux.HandleFunc("POST /api/transfers/{id}/cancel", transfersHandler.Cancel)
	mux.HandleFunc("POST /api/transfers/receive", transfersHandler.Receive)
	mux.HandleFunc("POST /api/transfers/scan", transfersHandler.Scan)

	// Loans.
	mux.HandleFunc("POST /api/loans", loansHandler.Create)
	mux.HandleFunc("GET /api/loans", loansHandler.List)
	mux.HandleFunc("GET /api/loans/stats", loansHandler.Stats)
	mux.HandleFunc("GET /api/loans/export.csv", loansHandler.Export)
	mux.HandleFunc("GET /api/loans/{id}", loansHandler.Get)
	mux.HandleFunc("POST /api/loans/{id}/send", loansHandler.Send)
	mux.HandleFunc("POST /api/loans/{id}/return", loansHandler.InitiateReturn)
	mux.HandleFunc("POST /api/loans/{id}/cancel", loansHandler.Cancel)
	mux.HandleFunc("POST /api/loans/receive", loansHandler.Receive)
	mux.HandleFunc("POST /api/loans/return/confirm", loansHandler.ConfirmReturn)
	mux.HandleFunc("POST /api/loans/scan", loansHandler.Scan)
	mux.HandleFunc("POST /api/loans/sweep", loansHandler.Sweep)

	// Audit trail.
	mux.HandleFunc("POST /api/audit", auditHandler.Record)
	mux.HandleFunc("GET /api/audit", auditHandler.Query)
	mux.HandleFunc("GET /api/audit/export.csv", auditHandler.Export)
	mux.HandleFunc("DELETE /api/audit", auditHandler.Purge)

	// Warehouses and inventory.
	mux.HandleFunc("GET /api/warehouses", inventoryHandler.ListWarehouses)
	mux.HandleFunc("POST /api/warehouses", inventoryHandler.CreateWarehouse)
	mux.HandleFunc("GET /api/warehouses/{id}", inventoryHandler.GetWarehouse)
	mux.HandleFunc("PUT /api/warehouses/{id}", inventoryHandler.UpdateWarehouse)
	mux.HandleFunc("DELETE /api/warehouses/{id}", inventoryHandler.DeleteWarehouse)
	mux.HandleFunc("GET /api/warehouses/{id}/items", inventoryHandler.WarehouseItems)
	mux.HandleFunc("GET /api/items", inventoryHandler.ListItems)
	mux.HandleFunc("POST /api/items", inventoryHandler.CreateItem)
	mux.HandleFunc("GET /api/items/{id}", inventoryHandler.GetItem)
	mux.HandleFunc("POST /api/items/{id}/adjust", inventoryHandler.AdjustItem)
	mux.HandleFunc("GET /api/stock", inventoryHandler.StockLevels)

	mux.Handle("GET /metrics", d.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
