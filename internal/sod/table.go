package sod

import (
	"encoding/json"
	"fmt"
	"os"
)

// BaselineTable is the role-permission matrix shipped with the service. A
// deployment overrides it with its own JSON file when the org chart differs.
func BaselineTable() PermissionTable {
	return PermissionTable{
		"accountant": {
			"ledger":   {"create"},
			"expenses": {"create"},
		},
		"controller": {
			"ledger": {"approve", "post"},
			"budget": {"create", "approve"},
		},
		"ap_clerk": {
			"ap": {"create"},
		},
		"ap_manager": {
			"ap": {"approve", "pay"},
		},
		"ar_clerk": {
			"ar": {"create"},
		},
		"finance_manager": {
			"ar":       {"approve"},
			"expenses": {"approve"},
			"budget":   {"approve"},
		},
	}
}

// LoadTable reads a permission table from a JSON file shaped as
// role -> module -> [actions]. An empty path yields the baseline table.
func LoadTable(path string) (PermissionTable, error) {
	if path == "" {
		return BaselineTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sod: read permission table: %w", err)
	}
	var table PermissionTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("sod: parse permission table: %w", err)
	}
	return table, nil
}
