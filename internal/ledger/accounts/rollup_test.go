package accounts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

func ptr(id int64) *int64 { return &id }

func TestRollupAggregatesDescendants(t *testing.T) {
	accts := []Account{
		{ID: 1, Code: "1000"},
		{ID: 2, Code: "1100", ParentID: ptr(1)},
		{ID: 3, Code: "1200", ParentID: ptr(1)},
		{ID: 4, Code: "1110", ParentID: ptr(2)},
	}
	own := map[int64]float64{1: 10, 2: 20, 3: 30, 4: 40}

	totals, err := Rollup(accts, own)
	require.NoError(t, err)
	require.InDelta(t, 100, totals[1], 0.001)
	require.InDelta(t, 60, totals[2], 0.001)
	require.InDelta(t, 30, totals[3], 0.001)
	require.InDelta(t, 40, totals[4], 0.001)
}

func TestRollupDetectsCycle(t *testing.T) {
	accts := []Account{
		{ID: 1, ParentID: ptr(2)},
		{ID: 2, ParentID: ptr(1)},
	}

	_, err := Rollup(accts, nil)
	require.ErrorIs(t, err, ledgershared.ErrHierarchyCycle)
}

func TestRollupRejectsMissingParent(t *testing.T) {
	accts := []Account{{ID: 1, ParentID: ptr(99)}}

	_, err := Rollup(accts, nil)
	require.ErrorIs(t, err, ledgershared.ErrParentNotFound)
}

func TestRollupHandlesDeepChains(t *testing.T) {
	const depth = 10000
	accts := make([]Account, 0, depth)
	own := make(map[int64]float64, depth)
	for i := int64(1); i <= depth; i++ {
		a := Account{ID: i, Code: fmt.Sprintf("A%d", i)}
		if i > 1 {
			parent := i - 1
			a.ParentID = &parent
		}
		accts = append(accts, a)
		own[i] = 1
	}

	totals, err := Rollup(accts, own)
	require.NoError(t, err)
	require.InDelta(t, depth, totals[1], 0.001)
	require.InDelta(t, 1, totals[depth], 0.001)
}

func TestValidateParent(t *testing.T) {
	accts := []Account{
		{ID: 1},
		{ID: 2, ParentID: ptr(1)},
		{ID: 3, ParentID: ptr(2)},
	}

	require.NoError(t, ValidateParent(accts, 3, nil))
	require.NoError(t, ValidateParent(accts, 3, ptr(1)))
	require.ErrorIs(t, ValidateParent(accts, 3, ptr(99)), ledgershared.ErrParentNotFound)
	// Moving the root under its own grandchild would loop the tree.
	require.ErrorIs(t, ValidateParent(accts, 1, ptr(3)), ledgershared.ErrHierarchyCycle)
	require.ErrorIs(t, ValidateParent(accts, 2, ptr(2)), ledgershared.ErrHierarchyCycle)
}
