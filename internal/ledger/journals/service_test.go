package journals

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	entries  map[int64]Entry
	lines    map[int64][]Line
	accounts map[int64]bool
	links    map[string]int64
	nextID   int64
	nextNum  int64
}

func newMemoryRepo(activeAccounts ...int64) *memoryRepo {
	accounts := make(map[int64]bool, len(activeAccounts))
	for _, id := range activeAccounts {
		accounts[id] = true
	}
	return &memoryRepo{
		entries:  make(map[int64]Entry),
		lines:    make(map[int64][]Line),
		accounts: accounts,
		links:    make(map[string]int64),
	}
}

func (m *memoryRepo) List(_ context.Context, orgID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.OrgID == orgID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, orgID, id int64) (Entry, error) {
	e, ok := m.entries[id]
	if !ok || e.OrgID != orgID {
		return Entry{}, ledgershared.ErrJournalNotFound
	}
	e.Lines = m.lines[id]
	return e, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.clone()
	if err := fn(ctx, m); err != nil {
		// Roll back by restoring the snapshot.
		*m = *snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) clone() *memoryRepo {
	c := newMemoryRepo()
	c.nextID, c.nextNum = m.nextID, m.nextNum
	for k, v := range m.entries {
		c.entries[k] = v
	}
	for k, v := range m.lines {
		c.lines[k] = append([]Line(nil), v...)
	}
	for k, v := range m.accounts {
		c.accounts[k] = v
	}
	for k, v := range m.links {
		c.links[k] = v
	}
	return c
}

func (m *memoryRepo) AccountStates(_ context.Context, _ int64, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, id := range ids {
		if active, ok := m.accounts[id]; ok {
			out[id] = active
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertEntry(_ context.Context, in CreateInput, status EntryStatus) (Entry, error) {
	m.nextID++
	m.nextNum++
	e := Entry{
		ID:           m.nextID,
		OrgID:        in.OrgID,
		Number:       m.nextNum,
		Date:         in.Date,
		Memo:         in.Memo,
		Status:       status,
		SourceModule: in.SourceModule,
		SourceRef:    in.SourceRef,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.entries[e.ID] = e
	return e, nil
}

func (m *memoryRepo) InsertLines(_ context.Context, entryID int64, lines []LineInput) error {
	for _, line := range lines {
		m.nextID++
		m.lines[entryID] = append(m.lines[entryID], Line{
			ID:        m.nextID,
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	return nil
}

func (m *memoryRepo) LinkSource(_ context.Context, orgID int64, module string, ref uuid.UUID, entryID int64) error {
	key := module + ":" + ref.String()
	if _, exists := m.links[key]; exists {
		return ledgershared.ErrSourceAlreadyLinked
	}
	m.links[key] = entryID
	return nil
}

func (m *memoryRepo) GetEntryForUpdate(_ context.Context, orgID, id int64) (Entry, error) {
	e, ok := m.entries[id]
	if !ok || e.OrgID != orgID {
		return Entry{}, ledgershared.ErrJournalNotFound
	}
	return e, nil
}

func (m *memoryRepo) GetLines(_ context.Context, entryID int64) ([]Line, error) {
	return m.lines[entryID], nil
}

func (m *memoryRepo) TransitionStatus(_ context.Context, orgID, id int64, from, to EntryStatus, actorID int64) error {
	e, ok := m.entries[id]
	if !ok || e.OrgID != orgID || e.Status != from {
		return internalshared.State("ledger: stale status")
	}
	e.Status = to
	if to == StatusApproved {
		e.ApprovedBy = &actorID
		now := time.Now()
		e.ApprovedAt = &now
	}
	if to == StatusPosted {
		now := time.Now()
		e.PostedAt = &now
	}
	m.entries[id] = e
	return nil
}

type countingBumper struct{ calls int }

func (b *countingBumper) Bump(context.Context) error {
	b.calls++
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *countingBumper) {
	bumper := &countingBumper{}
	svc := NewService(slog.Default(), repo, nil, bumper)
	return svc, bumper
}

func balancedInput(orgID int64) CreateInput {
	return CreateInput{
		OrgID:     orgID,
		Date:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Memo:      "office supplies",
		CreatedBy: 7,
		Lines: []LineInput{
			{AccountID: 1, Debit: 500},
			{AccountID: 2, Credit: 500},
		},
	}
}

func TestCreateBalancedEntry(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)

	entry, err := svc.Create(context.Background(), balancedInput(10))
	require.NoError(t, err)
	require.Equal(t, StatusDraft, entry.Status)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, int64(10), entry.OrgID)
}

func TestCreateUnbalancedEntryRejected(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)

	in := balancedInput(10)
	in.Lines[1].Credit = 400
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ledgershared.ErrUnbalanced)
	require.Empty(t, repo.entries, "nothing may persist from a rejected entry")
}

func TestCreateToleratesPennyImbalance(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)

	in := balancedInput(10)
	in.Lines[1].Credit = 500.009
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
}

func TestCreateRequiresTwoLines(t *testing.T) {
	repo := newMemoryRepo(1)
	svc, _ := newTestService(repo)

	in := balancedInput(10)
	in.Lines = in.Lines[:1]
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ledgershared.ErrTooFewLines)
}

func TestCreateAcceptsLineCarryingBothSides(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)

	// Both sides on one line are summed independently, not rejected.
	in := balancedInput(10)
	in.Lines = []LineInput{
		{AccountID: 1, Debit: 100, Credit: 50},
		{AccountID: 2, Credit: 50},
	}
	entry, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, 100.0, entry.Lines[0].Debit)
	require.Equal(t, 50.0, entry.Lines[0].Credit)
}

func TestCreateRejectsUnknownAccount(t *testing.T) {
	repo := newMemoryRepo(1)
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), balancedInput(10))
	require.ErrorIs(t, err, ledgershared.ErrAccountNotFound)
	require.Empty(t, repo.entries)
}

func TestCreateRejectsInactiveAccount(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	repo.accounts[2] = false
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), balancedInput(10))
	require.ErrorIs(t, err, ledgershared.ErrAccountInactive)
}

func TestLifecycleDraftToPosted(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, bumper := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)

	entry, err = svc.Submit(ctx, 10, entry.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, entry.Status)

	entry, err = svc.Approve(ctx, 10, entry.ID, 8)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, entry.Status)
	require.NotNil(t, entry.ApprovedBy)
	require.Equal(t, int64(8), *entry.ApprovedBy)

	entry, err = svc.Post(ctx, 10, entry.ID, 8)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, entry.Status)
	require.NotNil(t, entry.PostedAt)
	require.Equal(t, 1, bumper.calls)
}

func TestApproveStraightFromDraft(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)

	entry, err = svc.Approve(ctx, 10, entry.ID, 8)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, entry.Status)
}

func TestPostRequiresApproval(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)

	_, err = svc.Post(ctx, 10, entry.ID, 8)
	require.ErrorIs(t, err, internalshared.ErrState)
}

func TestRejectReturnsToDraft(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)
	entry, err = svc.Submit(ctx, 10, entry.ID, 7)
	require.NoError(t, err)

	entry, err = svc.Reject(ctx, 10, entry.ID, 8)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, entry.Status)
}

func TestPostedEntryCannotTransition(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, 10, entry.ID, 8)
	require.NoError(t, err)
	_, err = svc.Post(ctx, 10, entry.ID, 8)
	require.NoError(t, err)

	for _, action := range []func() error{
		func() error { _, err := svc.Submit(ctx, 10, entry.ID, 7); return err },
		func() error { _, err := svc.Approve(ctx, 10, entry.ID, 8); return err },
		func() error { _, err := svc.Reject(ctx, 10, entry.ID, 8); return err },
		func() error { _, err := svc.Post(ctx, 10, entry.ID, 8); return err },
	} {
		require.ErrorIs(t, action(), internalshared.ErrState)
	}
}

func TestReverseCreatesCounterEntry(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, 10, entry.ID, 8)
	require.NoError(t, err)
	_, err = svc.Post(ctx, 10, entry.ID, 8)
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, ReverseInput{OrgID: 10, EntryID: entry.ID, ActorID: 8})
	require.NoError(t, err)
	require.Equal(t, StatusPosted, reversal.Status)
	require.Len(t, reversal.Lines, 2)
	require.Equal(t, 500.0, reversal.Lines[0].Credit)
	require.Equal(t, 500.0, reversal.Lines[1].Debit)

	original, err := svc.Get(ctx, 10, entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReversed, original.Status)
}

func TestReverseRejectsNonPosted(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, ReverseInput{OrgID: 10, EntryID: entry.ID, ActorID: 8})
	require.ErrorIs(t, err, internalshared.ErrState)
}

func TestSourceLinkRejectsDuplicate(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	ref := uuid.New()
	in := balancedInput(10)
	in.SourceModule = "ap"
	in.SourceRef = ref
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	require.True(t, errors.Is(err, ledgershared.ErrSourceAlreadyLinked))
}

func TestCrossOrgEntryInvisible(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(10))
	require.NoError(t, err)

	_, err = svc.Get(ctx, 99, entry.ID)
	require.ErrorIs(t, err, ledgershared.ErrJournalNotFound)
	_, err = svc.Submit(ctx, 99, entry.ID, 7)
	require.ErrorIs(t, err, ledgershared.ErrJournalNotFound)
}
