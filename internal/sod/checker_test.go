package sod

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tableWithConflict() PermissionTable {
	return PermissionTable{
		"accountant": {
			"ledger": {"create", "read"},
			"ap":     {"create", "read"},
		},
		"controller": {
			"ledger": {"read", "approve", "post"},
			"ap":     {"read", "approve", "pay"},
		},
		"office_manager": {
			"ledger":   {"create", "approve"},
			"expenses": {"create", "approve"},
		},
	}
}

func TestDetectFlagsCreateApproveOverlap(t *testing.T) {
	conflicts := Detect(tableWithConflict(), DefaultRules())

	byRole := make(map[string][]Conflict)
	for _, c := range conflicts {
		byRole[c.Role] = append(byRole[c.Role], c)
	}

	require.Empty(t, byRole["accountant"], "create without approve is clean")
	require.Empty(t, byRole["controller"], "approve without create is clean")
	require.Len(t, byRole["office_manager"], 2)
	for _, c := range byRole["office_manager"] {
		require.Equal(t, SeverityHigh, c.Severity)
	}
}

func TestDetectEmptyInputs(t *testing.T) {
	require.Empty(t, Detect(nil, DefaultRules()))
	require.Empty(t, Detect(tableWithConflict(), nil))
}

func TestDetectCrossModuleRule(t *testing.T) {
	table := PermissionTable{
		"hybrid": {
			"ap":     {"create"},
			"ledger": {"post"},
		},
	}
	rules := []ConflictRule{
		{Module1: "ap", Action1: "create", Module2: "ledger", Action2: "post", Severity: SeverityMedium},
	}
	conflicts := Detect(table, rules)
	require.Len(t, conflicts, 1)
	require.Equal(t, "hybrid", conflicts[0].Role)
	require.Equal(t, SeverityMedium, conflicts[0].Severity)
}

func TestDetectOrderIsDeterministic(t *testing.T) {
	table := PermissionTable{
		"zeta":  {"ledger": {"create", "approve"}},
		"alpha": {"ledger": {"create", "approve"}},
	}
	conflicts := Detect(table, DefaultRules())
	require.Len(t, conflicts, 2)
	require.Equal(t, "alpha", conflicts[0].Role)
	require.Equal(t, "zeta", conflicts[1].Role)
}

func TestDetectIsPure(t *testing.T) {
	table := tableWithConflict()
	first := Detect(table, DefaultRules())
	second := Detect(table, DefaultRules())
	require.Equal(t, first, second)
}
