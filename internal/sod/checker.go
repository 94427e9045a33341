// Package sod detects segregation-of-duties conflicts in a role permission
// table. Detection is a pure function over the table and a rule list; nothing
// is persisted and every call recomputes from scratch.
package sod

import "sort"

// Severity ranks how serious a conflict is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// PermissionTable maps role to module to the actions the role may perform.
// It is supplied by the caller, never read from a package-level default.
type PermissionTable map[string]map[string][]string

// ConflictRule names two permissions a single role must not hold together.
type ConflictRule struct {
	Module1  string   `json:"module1"`
	Action1  string   `json:"action1"`
	Module2  string   `json:"module2"`
	Action2  string   `json:"action2"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// Conflict is one role's violation of one rule.
type Conflict struct {
	Role     string       `json:"role"`
	Rule     ConflictRule `json:"rule"`
	Severity Severity     `json:"severity"`
}

// DefaultRules pairs creation with approval inside the same domain. A role
// that can both originate and approve the same kind of record can move money
// unchecked.
func DefaultRules() []ConflictRule {
	return []ConflictRule{
		{Module1: "ledger", Action1: "create", Module2: "ledger", Action2: "approve", Severity: SeverityHigh, Reason: "journal entry creator approves own entries"},
		{Module1: "ledger", Action1: "create", Module2: "ledger", Action2: "post", Severity: SeverityHigh, Reason: "journal entry creator posts own entries"},
		{Module1: "ap", Action1: "create", Module2: "ap", Action2: "approve", Severity: SeverityHigh, Reason: "payable creator approves own invoices"},
		{Module1: "ap", Action1: "create", Module2: "ap", Action2: "pay", Severity: SeverityHigh, Reason: "payable creator pays own invoices"},
		{Module1: "ar", Action1: "create", Module2: "ar", Action2: "approve", Severity: SeverityMedium, Reason: "receivable creator approves own invoices"},
		{Module1: "expenses", Action1: "create", Module2: "expenses", Action2: "approve", Severity: SeverityHigh, Reason: "expense submitter approves own reports"},
	}
}

// Detect scans every role in the table against every rule and returns the
// conflicts found, ordered by role then rule position.
func Detect(table PermissionTable, rules []ConflictRule) []Conflict {
	roles := make([]string, 0, len(table))
	for role := range table {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var conflicts []Conflict
	for _, role := range roles {
		perms := table[role]
		for _, rule := range rules {
			if hasAction(perms, rule.Module1, rule.Action1) && hasAction(perms, rule.Module2, rule.Action2) {
				conflicts = append(conflicts, Conflict{Role: role, Rule: rule, Severity: rule.Severity})
			}
		}
	}
	return conflicts
}

func hasAction(perms map[string][]string, module, action string) bool {
	for _, a := range perms[module] {
		if a == action {
			return true
		}
	}
	return false
}
