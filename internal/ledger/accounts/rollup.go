package accounts

import (
	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Rollup computes, for every account, its own balance plus the balances of all
// descendants. The walk is iterative, processing leaves first, so deep trees
// cannot overflow the stack and misconfigured cycles are detected instead of
// looping forever.
func Rollup(accts []Account, own map[int64]float64) (map[int64]float64, error) {
	children := make(map[int64][]int64, len(accts))
	pendingChildren := make(map[int64]int, len(accts))
	index := make(map[int64]Account, len(accts))
	for _, a := range accts {
		index[a.ID] = a
	}
	for _, a := range accts {
		if a.ParentID == nil {
			continue
		}
		if _, ok := index[*a.ParentID]; !ok {
			return nil, ledgershared.ErrParentNotFound
		}
		children[*a.ParentID] = append(children[*a.ParentID], a.ID)
		pendingChildren[*a.ParentID]++
	}

	totals := make(map[int64]float64, len(accts))
	queue := make([]int64, 0, len(accts))
	for _, a := range accts {
		totals[a.ID] = own[a.ID]
		if pendingChildren[a.ID] == 0 {
			queue = append(queue, a.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		acct := index[id]
		if acct.ParentID == nil {
			continue
		}
		parent := *acct.ParentID
		totals[parent] += totals[id]
		pendingChildren[parent]--
		if pendingChildren[parent] == 0 {
			queue = append(queue, parent)
		}
	}
	if processed != len(accts) {
		return nil, ledgershared.ErrHierarchyCycle
	}
	return totals, nil
}

// ValidateParent rejects parent assignments that would create a cycle, walking
// up the tree with an explicit visit set instead of recursing.
func ValidateParent(accts []Account, accountID int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	index := make(map[int64]Account, len(accts))
	for _, a := range accts {
		index[a.ID] = a
	}
	if _, ok := index[*parentID]; !ok {
		return ledgershared.ErrParentNotFound
	}
	seen := map[int64]bool{accountID: true}
	cursor := parentID
	for cursor != nil {
		if seen[*cursor] {
			return ledgershared.ErrHierarchyCycle
		}
		seen[*cursor] = true
		next := index[*cursor].ParentID
		cursor = next
	}
	return nil
}
