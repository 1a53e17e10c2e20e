package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/erazemk/premik/internal/model"
)

// skipped are fields that change on every write or are copies of another
// entity's data.
var skipped = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// Diff compares two values by their JSON field names and returns one change
// per differing field, sorted by field. Either side may be nil.
func Diff(oldValue, newValue any) ([]model.Change, error) {
	before, err := fields(oldValue)
	if err != nil {
		return nil, err
	}
	after, err := fields(newValue)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(before)+len(after))
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}

	var changes []model.Change
	for k := range keys {
		if skipped[k] || strings.HasSuffix(k, "_name") {
			continue
		}
		o, n := render(before[k]), render(after[k])
		if o != n {
			changes = append(changes, model.Change{Field: k, OldValue: o, NewValue: n})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes, nil
}

func fields(v any) (map[string]json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value for diff: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("diff needs a JSON object: %w", err)
	}
	return m, nil
}

// render turns a raw JSON value into the string stored in a change. Strings
// lose their quotes; absent and null values are empty.
func render(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
