package api

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/model"
	"github.com/erazemk/premik/internal/store"
)

// InventoryHandler handles warehouse and inventory item endpoints.
type InventoryHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
	Trail  *audit.Trail
	Clock  clock.Clock
}

// itemResponse adds derived fields to an inventory item.
type itemResponse struct {
	model.InventoryItem
	LowStock bool `json:"low_stock"`
}

func itemResponses(items []model.InventoryItem) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{InventoryItem: it, LowStock: it.LowStock()})
	}
	return out
}

type warehouseRequest struct {
	Name  string `json:"name"`
	Actor string `json:"actor"`
}

// recordChange appends an audit entry for an inventory change.
func (h *InventoryHandler) recordChange(ctx context.Context, tx db.DBTX, entity string, id int64, action model.AuditAction, actor string, before, after any, metadata map[string]string) error {
	changes, err := audit.Diff(before, after)
	if err != nil {
		return err
	}
	_, err = h.Trail.Record(ctx, tx, audit.Entry{
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Action:   action,
		Actor:    actor,
		Changes:  changes,
		Metadata: metadata,
	})
	return err
}

// ListWarehouses handles GET /api/warehouses.
func (h *InventoryHandler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := store.ListWarehouses(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if warehouses == nil {
		warehouses = []model.Warehouse{}
	}
	jsonResponse(w, http.StatusOK, warehouses)
}

// CreateWarehouse handles POST /api/warehouses.
func (h *InventoryHandler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	var wh *model.Warehouse
	err := db.RunInTx(r.Context(), h.DB, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if wh, err = store.CreateWarehouse(ctx, tx, req.Name); err != nil {
			return err
		}
		return h.recordChange(ctx, tx, model.EntityWarehouse, wh.ID, model.AuditCreate, req.Actor, nil, wh, nil)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, wh)
}

// GetWarehouse handles GET /api/warehouses/{id}.
func (h *InventoryHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	wh, err := store.GetWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wh == nil {
		writeError(w, r, model.NotFound(model.EntityWarehouse, id))
		return
	}
	jsonResponse(w, http.StatusOK, wh)
}

// UpdateWarehouse handles PUT /api/warehouses/{id}.
func (h *InventoryHandler) UpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req warehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	var after *model.Warehouse
	err = db.RunInTx(r.Context(), h.DB, func(ctx context.Context, tx db.DBTX) error {
		before, err := store.RequireActiveWarehouse(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := store.UpdateWarehouse(ctx, tx, id, req.Name); err != nil {
			return err
		}
		if after, err = store.GetWarehouse(ctx, tx, id); err != nil {
			return err
		}
		return h.recordChange(ctx, tx, model.EntityWarehouse, id, model.AuditUpdate, req.Actor, before, after, nil)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, after)
}

// DeleteWarehouse handles DELETE /api/warehouses/{id}?actor=.
func (h *InventoryHandler) DeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := r.URL.Query().Get("actor")

	err = db.RunInTx(r.Context(), h.DB, func(ctx context.Context, tx db.DBTX) error {
		before, err := store.RequireActiveWarehouse(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := store.DeleteWarehouse(ctx, tx, id); err != nil {
			return err
		}
		return h.recordChange(ctx, tx, model.EntityWarehouse, id, model.AuditDelete, actor, before, nil, nil)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WarehouseItems handles GET /api/warehouses/{id}/items.
func (h *InventoryHandler) WarehouseItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := store.RequireActiveWarehouse(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := store.ListItemsByWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, itemResponses(items))
}

// ListItems handles GET /api/items?sku=.
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, r.URL.Query().Get("sku"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, itemResponses(items))
}

type createItemRequest struct {
	SKU         string         `json:"sku"`
	Name        string         `json:"name"`
	ItemType    model.ItemType `json:"item_type"`
	Quantity    int            `json:"quantity"`
	WarehouseID int64          `json:"warehouse_id"`
	MinQuantity int            `json:"min_quantity"`
	Actor       string         `json:"actor"`
}

// CreateItem handles POST /api/items.
func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var item *model.InventoryItem
	err := db.RunInTx(r.Context(), h.DB, func(ctx context.Context, tx db.DBTX) error {
		var err error
		item, err = store.CreateItem(ctx, tx, store.NewItem{
			SKU:         req.SKU,
			Name:        req.Name,
			ItemType:    req.ItemType,
			Quantity:    req.Quantity,
			WarehouseID: req.WarehouseID,
			MinQuantity: req.MinQuantity,
		}, h.Clock.Now())
		if err != nil {
			return err
		}
		return h.recordChange(ctx, tx, model.EntityItem, item.ID, model.AuditCreate, req.Actor, nil, item, nil)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, itemResponse{InventoryItem: *item, LowStock: item.LowStock()})
}

// GetItem handles GET /api/items/{id}.
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeError(w, r, model.NotFound(model.EntityItem, id))
		return
	}
	jsonResponse(w, http.StatusOK, itemResponse{InventoryItem: *item, LowStock: item.LowStock()})
}

type adjustRequest struct {
	Delta  int    `json:"delta"`
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// AdjustItem handles POST /api/items/{id}/adjust, a manual stock correction.
func (h *InventoryHandler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" {
		writeError(w, r, model.Validation("actor is required"))
		return
	}

	var after *model.InventoryItem
	err = db.RunInTx(r.Context(), h.DB, func(ctx context.Context, tx db.DBTX) error {
		before, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if before == nil {
			return model.NotFound(model.EntityItem, id)
		}
		if err := h.Ledger.Adjust(ctx, tx, id, req.Delta); err != nil {
			return err
		}
		if after, err = store.GetItem(ctx, tx, id); err != nil {
			return err
		}

		var metadata map[string]string
		if req.Reason != "" {
			metadata = map[string]string{"reason": req.Reason}
		}
		return h.recordChange(ctx, tx, model.EntityItem, id, model.AuditUpdate, req.Actor, before, after, metadata)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, itemResponse{InventoryItem: *after, LowStock: after.LowStock()})
}

// StockLevels handles GET /api/stock.
func (h *InventoryHandler) StockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := store.ListStockLevels(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if levels == nil {
		levels = []store.StockLevel{}
	}
	jsonResponse(w, http.StatusOK, levels)
}
