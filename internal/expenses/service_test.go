package expenses

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	reports map[int64]Report
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{reports: make(map[int64]Report)}
}

func (m *memoryRepo) CreateReport(_ context.Context, report Report) (Report, error) {
	m.nextID++
	report.ID = m.nextID
	for i := range report.Lines {
		m.nextID++
		report.Lines[i].ID = m.nextID
		report.Lines[i].ReportID = report.ID
	}
	m.reports[report.ID] = report
	return report, nil
}

func (m *memoryRepo) GetReport(_ context.Context, orgID, id int64) (Report, error) {
	rep, ok := m.reports[id]
	if !ok || rep.OrgID != orgID {
		return Report{}, ErrReportNotFound
	}
	return rep, nil
}

func (m *memoryRepo) GetReportByRef(_ context.Context, orgID int64, ref uuid.UUID) (Report, error) {
	for _, rep := range m.reports {
		if rep.OrgID == orgID && rep.Ref == ref {
			return rep, nil
		}
	}
	return Report{}, ErrReportNotFound
}

func (m *memoryRepo) ListReports(_ context.Context, orgID int64) ([]Report, error) {
	var out []Report
	for _, rep := range m.reports {
		if rep.OrgID == orgID {
			out = append(out, rep)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetStatus(_ context.Context, orgID, id int64, status ReportStatus) error {
	rep, ok := m.reports[id]
	if !ok || rep.OrgID != orgID {
		return ErrReportNotFound
	}
	rep.Status = status
	m.reports[id] = rep
	return nil
}

type recordingGL struct {
	entries []journals.CreateInput
}

func (g *recordingGL) Create(_ context.Context, in journals.CreateInput) (journals.Entry, error) {
	g.entries = append(g.entries, in)
	return journals.Entry{ID: int64(len(g.entries))}, nil
}

type recordingWorkflow struct {
	started []uuid.UUID
}

func (w *recordingWorkflow) StartForEntity(_ context.Context, _ int64, _ string, ref uuid.UUID, _ int64) (int64, error) {
	w.started = append(w.started, ref)
	return int64(len(w.started)), nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *recordingGL, *recordingWorkflow) {
	t.Helper()
	repo := newMemoryRepo()
	gl := &recordingGL{}
	wf := &recordingWorkflow{}
	svc := NewService(slog.Default(), repo, gl, wf, GLAccounts{Cash: 100}, DefaultPolicy())
	svc.WithNow(func() time.Time { return time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC) })
	return svc, repo, gl, wf
}

func submitInput() SubmitInput {
	return SubmitInput{
		OrgID:        1,
		Number:       "EXP-001",
		EmployeeID:   7,
		DepartmentID: 3,
		Lines: []LineItem{
			{AccountID: 50, Category: "travel", Amount: 120, IncurredAt: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)},
			{AccountID: 51, Category: "meals", Amount: 45, IncurredAt: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestSubmitStartsWorkflow(t *testing.T) {
	svc, _, _, wf := newTestService(t)

	report, advisories, err := svc.Submit(context.Background(), submitInput())
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, report.Status)
	require.Equal(t, 165.0, report.Total)
	require.Empty(t, advisories)
	require.Equal(t, []uuid.UUID{report.Ref}, wf.started)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	in := submitInput()
	in.Number = " "
	_, _, err := svc.Submit(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = submitInput()
	in.Lines = nil
	_, _, err = svc.Submit(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = submitInput()
	in.Lines[0].Amount = -5
	_, _, err = svc.Submit(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitReturnsAdvisoriesOnSuccess(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	in := submitInput()
	in.Lines[0].Amount = 900
	in.Lines[1].IncurredAt = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	report, advisories, err := svc.Submit(context.Background(), in)
	require.NoError(t, err, "policy findings never block submission")
	require.Equal(t, StatusSubmitted, report.Status)
	require.Len(t, advisories, 2)

	codes := []string{advisories[0].Code, advisories[1].Code}
	require.Contains(t, codes, "item_over_limit")
	require.Contains(t, codes, "stale_receipt")
}

func TestWorkflowOutcomeFlipsStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	report, _, err := svc.Submit(ctx, submitInput())
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWorkflowOutcome(ctx, 1, report.Ref, true))
	got, err := svc.Get(ctx, 1, report.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
}

func TestWorkflowRejectionFlipsStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	report, _, err := svc.Submit(ctx, submitInput())
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWorkflowOutcome(ctx, 1, report.Ref, false))
	got, err := svc.Get(ctx, 1, report.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
}

func TestReimburseRequiresApproval(t *testing.T) {
	svc, _, gl, _ := newTestService(t)
	ctx := context.Background()

	report, _, err := svc.Submit(ctx, submitInput())
	require.NoError(t, err)

	_, err = svc.Reimburse(ctx, 1, report.ID, 9)
	require.ErrorIs(t, err, shared.ErrState)
	require.Empty(t, gl.entries)
}

func TestReimbursePostsBalancedJournal(t *testing.T) {
	svc, _, gl, _ := newTestService(t)
	ctx := context.Background()

	report, _, err := svc.Submit(ctx, submitInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApplyWorkflowOutcome(ctx, 1, report.Ref, true))

	paid, err := svc.Reimburse(ctx, 1, report.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusReimbursed, paid.Status)

	require.Len(t, gl.entries, 1)
	entry := gl.entries[0]
	require.Equal(t, "expenses", entry.SourceModule)
	require.Equal(t, report.Ref, entry.SourceRef)
	require.NoError(t, entry.Validate(), "reimbursement journal must balance")

	var debit, credit float64
	for _, line := range entry.Lines {
		debit += line.Debit
		credit += line.Credit
		if line.Debit > 0 {
			require.NotNil(t, line.DepartmentID)
			require.Equal(t, int64(3), *line.DepartmentID)
		}
	}
	require.Equal(t, 165.0, debit)
	require.Equal(t, 165.0, credit)

	_, err = svc.Reimburse(ctx, 1, report.ID, 9)
	require.ErrorIs(t, err, shared.ErrState, "double reimbursement refused")
}
