package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: indexes for the list filters and the overdue sweep.
	`CREATE INDEX IF NOT EXISTS idx_transfer_requests_status ON transfer_requests(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_status_due ON loans(status, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_entity ON reservations(entity, entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_entity ON audit_entries(entity, entity_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_warehouse ON inventory_items(warehouse_id, name)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
