package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	nextID   int64
	accounts map[int64]Account
	balances map[int64]float64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: map[int64]Account{}, balances: map[int64]float64{}}
}

func (m *memoryRepo) Insert(_ context.Context, a Account) (Account, error) {
	for _, existing := range m.accounts {
		if existing.OrgID == a.OrgID && existing.Code == a.Code {
			return Account{}, ledgershared.ErrDuplicateCode
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryRepo) Update(_ context.Context, a Account) (Account, error) {
	if _, ok := m.accounts[a.ID]; !ok {
		return Account{}, ledgershared.ErrAccountNotFound
	}
	a.UpdatedAt = time.Now()
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryRepo) Get(_ context.Context, orgID, id int64) (Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.OrgID != orgID {
		return Account{}, ledgershared.ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryRepo) List(_ context.Context, orgID int64) ([]Account, error) {
	out := make([]Account, 0, len(m.accounts))
	for id := int64(1); id <= m.nextID; id++ {
		if a, ok := m.accounts[id]; ok && a.OrgID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetActive(_ context.Context, orgID, id int64, active bool) error {
	a, ok := m.accounts[id]
	if !ok || a.OrgID != orgID {
		return ledgershared.ErrAccountNotFound
	}
	a.IsActive = active
	m.accounts[id] = a
	return nil
}

func (m *memoryRepo) OwnBalances(_ context.Context, orgID int64) (map[int64]float64, error) {
	out := map[int64]float64{}
	for id, bal := range m.balances {
		if a, ok := m.accounts[id]; ok && a.OrgID == orgID {
			out[id] = bal
		}
	}
	return out, nil
}

type auditRecorder struct {
	logs []shared.AuditLog
}

func (a *auditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateDefaultsNormalBalance(t *testing.T) {
	repo := newMemoryRepo()
	audit := &auditRecorder{}
	svc := NewService(repo, audit)

	exp, err := svc.Create(context.Background(), CreateInput{
		OrgID: 1, Code: "6000", Name: "Travel", Classification: ClassExpense, ActorID: 9,
	})
	require.NoError(t, err)
	require.Equal(t, NormalDebit, exp.NormalBalance)
	require.True(t, exp.IsActive)

	rev, err := svc.Create(context.Background(), CreateInput{
		OrgID: 1, Code: "4000", Name: "Sales", Classification: ClassRevenue, ActorID: 9,
	})
	require.NoError(t, err)
	require.Equal(t, NormalCredit, rev.NormalBalance)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "account.create", audit.logs[0].Action)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Name: "x", Classification: ClassAsset})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "1", Name: "x", Classification: "WEIRD"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		OrgID: 1, Code: "1", Name: "x", Classification: ClassAsset, ParentID: ptr(42),
	})
	require.ErrorIs(t, err, ledgershared.ErrParentNotFound)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	in := CreateInput{OrgID: 1, Code: "1000", Name: "Cash", Classification: ClassAsset}

	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestReparentRefusesCycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	root, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "1000", Name: "Assets", Classification: ClassAsset})
	require.NoError(t, err)
	child, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "1100", Name: "Cash", Classification: ClassAsset, ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.Reparent(context.Background(), 1, root.ID, &child.ID)
	require.ErrorIs(t, err, ledgershared.ErrHierarchyCycle)

	moved, err := svc.Reparent(context.Background(), 1, child.ID, nil)
	require.NoError(t, err)
	require.Nil(t, moved.ParentID)
}

func TestBalancesRollUpAndSignToNormalSide(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	assets, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "1000", Name: "Assets", Classification: ClassAsset})
	require.NoError(t, err)
	cash, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "1100", Name: "Cash", Classification: ClassAsset, ParentID: &assets.ID})
	require.NoError(t, err)
	sales, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "4000", Name: "Sales", Classification: ClassRevenue})
	require.NoError(t, err)

	// Own balances are stored debit-positive.
	repo.balances[cash.ID] = 250
	repo.balances[sales.ID] = -250

	rolled, err := svc.Balances(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rolled, 3)

	byID := map[int64]float64{}
	for _, rb := range rolled {
		byID[rb.Account.ID] = rb.Balance
	}
	require.InDelta(t, 250, byID[assets.ID], 0.001)
	require.InDelta(t, 250, byID[cash.ID], 0.001)
	// Credit-normal accounts report their balance as a positive number.
	require.InDelta(t, 250, byID[sales.ID], 0.001)
}

func TestDeactivateHidesAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	acct, err := svc.Create(context.Background(), CreateInput{OrgID: 1, Code: "1000", Name: "Cash", Classification: ClassAsset})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), 1, acct.ID))
	got, err := repo.Get(context.Background(), 1, acct.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.ErrorIs(t, svc.Deactivate(context.Background(), 1, 999), ledgershared.ErrAccountNotFound)
}
