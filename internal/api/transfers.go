package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/premik/internal/export"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/transfer"
)

// TransfersHandler handles transfer endpoints.
type TransfersHandler struct {
	Transfers *transfer.Service
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transfer.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Transfers.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, t)
}

func transferFilter(r *http.Request) (transfer.Filter, error) {
	f := transfer.Filter{
		Status:      model.TransferStatus(r.URL.Query().Get("status")),
		RequestedBy: r.URL.Query().Get("requested_by"),
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

// List handles GET /api/transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := transferFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfers, err := h.Transfers.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Stats handles GET /api/transfers/stats.
func (h *TransfersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Transfers.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Export handles GET /api/transfers/export.csv. It accepts the List filters.
func (h *TransfersHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := transferFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfers, err := h.Transfers.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	csvResponse(w, "transfers.csv")
	if err := export.WriteTransfers(w, transfers); err != nil {
		slog.Error("writing transfers export", "error", err)
	}
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Transfers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Approve handles POST /api/transfers/{id}/approve.
func (h *TransfersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Transfers.Approve(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Reject handles POST /api/transfers/{id}/reject.
func (h *TransfersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Transfers.Reject(r.Context(), r.PathValue("id"), req.Actor, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Send handles POST /api/transfers/{id}/send. The response carries the
// send token for the QR label.
func (h *TransfersHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Transfers.Send(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Cancel handles POST /api/transfers/{id}/cancel.
func (h *TransfersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Transfers.Cancel(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Receive handles POST /api/transfers/receive.
func (h *TransfersHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Transfers.ConfirmReceipt(r.Context(), req.Token, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Scan handles POST /api/transfers/scan.
func (h *TransfersHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Transfers.Scan(r.Context(), req.Token, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}
