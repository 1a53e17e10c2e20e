package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/premik/internal/export"
	"github.com/erazemk/premik/internal/loan"
	"github.com/erazemk/premik/internal/model"
)

// LoansHandler handles loan endpoints.
type LoansHandler struct {
	Loans *loan.Service
}

// Create handles POST /api/loans.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req loan.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Loans.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, l)
}

func loanFilter(r *http.Request) (loan.Filter, error) {
	q := r.URL.Query()
	f := loan.Filter{
		Status:      model.LoanStatus(q.Get("status")),
		CreatedBy:   q.Get("created_by"),
		OverdueOnly: q.Get("overdue") == "true" || q.Get("overdue") == "1",
	}
	var err error
	if f.WarehouseID, err = queryInt64(r, "warehouse_id"); err != nil {
		return f, err
	}
	if f.ItemID, err = queryInt64(r, "item_id"); err != nil {
		return f, err
	}
	f.Limit, f.Offset, err = page(r)
	return f, err
}

// List handles GET /api/loans.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := loanFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	loans, err := h.Loans.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Stats handles GET /api/loans/stats.
func (h *LoansHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Loans.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Export handles GET /api/loans/export.csv. It accepts the List filters.
func (h *LoansHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := loanFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	loans, err := h.Loans.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	csvResponse(w, "loans.csv")
	if err := export.WriteLoans(w, loans); err != nil {
		slog.Error("writing loans export", "error", err)
	}
}

// Get handles GET /api/loans/{id}.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.Loans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// transition decodes an actor body and runs op against the path id.
func (h *LoansHandler) transition(w http.ResponseWriter, r *http.Request, op func(id, actor string) (*model.Loan, error)) {
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := op(r.PathValue("id"), req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Send handles POST /api/loans/{id}/send.
func (h *LoansHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor string) (*model.Loan, error) {
		return h.Loans.Send(r.Context(), id, actor)
	})
}

// InitiateReturn handles POST /api/loans/{id}/return.
func (h *LoansHandler) InitiateReturn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor string) (*model.Loan, error) {
		return h.Loans.InitiateReturn(r.Context(), id, actor)
	})
}

// Cancel handles POST /api/loans/{id}/cancel.
func (h *LoansHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id, actor string) (*model.Loan, error) {
		return h.Loans.Cancel(r.Context(), id, actor)
	})
}

// Receive handles POST /api/loans/receive.
func (h *LoansHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	l, err := h.Loans.ConfirmReceipt(r.Context(), req.Token, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// ConfirmReturn handles POST /api/loans/return/confirm.
func (h *LoansHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	l, err := h.Loans.ConfirmReturn(r.Context(), req.Token, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Scan handles POST /api/loans/scan.
func (h *LoansHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Loans.Scan(r.Context(), req.Token, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Sweep handles POST /api/loans/sweep, running the overdue sweep on demand.
func (h *LoansHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.Loans.SweepOverdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
