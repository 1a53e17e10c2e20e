package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erazemk/premik/internal/db"
)

// statusTables are the tables whose status column may be swapped.
var statusTables = map[string]bool{
	"transfer_requests": true,
	"loans":             true,
}

// CompareAndSetStatus moves a row from status `from` to status `to` and sets
// the extra columns in the same statement. It reports false when the row's
// status no longer equals `from` (or the row does not exist).
func CompareAndSetStatus(ctx context.Context, q db.DBTX, table, id, from, to string, now time.Time, set map[string]any) (bool, error) {
	if !statusTables[table] {
		return false, fmt.Errorf("status swap on unknown table %q", table)
	}

	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	assignments := []string{"status = ?", "updated_at = ?"}
	args := []any{to, now}
	for _, c := range cols {
		assignments = append(assignments, c+" = ?")
		args = append(args, set[c])
	}
	args = append(args, id, from)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ? AND status = ?`, table, strings.Join(assignments, ", "))
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating %s status: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating %s status: %w", table, err)
	}
	return n == 1, nil
}
