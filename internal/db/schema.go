package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS warehouses (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS inventory_items (
    id           INTEGER PRIMARY KEY,
    sku          TEXT NOT NULL,
    name         TEXT NOT NULL,
    item_type    TEXT NOT NULL CHECK (item_type IN ('UNIQUE', 'BULK')),
    quantity     INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    warehouse_id INTEGER NOT NULL REFERENCES warehouses(id),
    min_quantity INTEGER NOT NULL DEFAULT 0 CHECK (min_quantity >= 0),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (item_type = 'BULK' OR quantity <= 1),
    UNIQUE (sku, warehouse_id)
);

CREATE TABLE IF NOT EXISTS reservations (
    id                  TEXT PRIMARY KEY,
    item_id             INTEGER NOT NULL REFERENCES inventory_items(id),
    source_warehouse_id INTEGER NOT NULL REFERENCES warehouses(id),
    quantity            INTEGER NOT NULL CHECK (quantity > 0),
    state               TEXT NOT NULL CHECK (state IN ('HELD', 'COMMITTED', 'RELEASED', 'LOANED', 'RETURNED')),
    entity              TEXT NOT NULL,
    entity_id           TEXT NOT NULL,
    created_at          DATETIME NOT NULL,
    updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS transfer_requests (
    id                       TEXT PRIMARY KEY,
    status                   TEXT NOT NULL,
    source_warehouse_id      INTEGER NOT NULL REFERENCES warehouses(id),
    destination_warehouse_id INTEGER NOT NULL REFERENCES warehouses(id),
    requested_by             TEXT NOT NULL,
    approved_by              TEXT,
    rejected_reason          TEXT,
    cancelled_by             TEXT,
    notes                    TEXT,
    send_token               TEXT,
    received_at              DATETIME,
    received_by              TEXT,
    created_at               DATETIME NOT NULL,
    updated_at               DATETIME NOT NULL,
    CHECK (source_warehouse_id <> destination_warehouse_id)
);

CREATE TABLE IF NOT EXISTS transfer_lines (
    transfer_id       TEXT NOT NULL REFERENCES transfer_requests(id),
    position          INTEGER NOT NULL,
    inventory_item_id INTEGER NOT NULL REFERENCES inventory_items(id),
    quantity          INTEGER NOT NULL CHECK (quantity > 0),
    reservation_id    TEXT NOT NULL REFERENCES reservations(id),
    PRIMARY KEY (transfer_id, position)
);

CREATE TABLE IF NOT EXISTS loans (
    id                       TEXT PRIMARY KEY,
    status                   TEXT NOT NULL,
    inventory_item_id        INTEGER NOT NULL REFERENCES inventory_items(id),
    quantity                 INTEGER NOT NULL CHECK (quantity > 0),
    source_warehouse_id      INTEGER NOT NULL REFERENCES warehouses(id),
    destination_warehouse_id INTEGER NOT NULL REFERENCES warehouses(id),
    reservation_id           TEXT NOT NULL REFERENCES reservations(id),
    loan_date                DATETIME NOT NULL,
    due_date                 DATETIME NOT NULL,
    return_date              DATETIME,
    send_token               TEXT,
    return_token             TEXT,
    received_at              DATETIME,
    received_by              TEXT,
    return_confirmed_by      TEXT,
    created_by               TEXT NOT NULL,
    notes                    TEXT,
    created_at               DATETIME NOT NULL,
    updated_at               DATETIME NOT NULL,
    CHECK (source_warehouse_id <> destination_warehouse_id)
);

CREATE TABLE IF NOT EXISTS handoff_tokens (
    jti         TEXT PRIMARY KEY,
    entity      TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    phase       TEXT NOT NULL CHECK (phase IN ('SEND', 'RETURN')),
    created_at  DATETIME NOT NULL,
    consumed_at DATETIME
);

CREATE TABLE IF NOT EXISTS audit_entries (
    id          TEXT PRIMARY KEY,
    entity      TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    action      TEXT NOT NULL CHECK (action IN ('CREATE', 'UPDATE', 'DELETE')),
    actor       TEXT NOT NULL,
    recorded_at DATETIME NOT NULL,
    changes     TEXT NOT NULL DEFAULT '[]',
    metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
