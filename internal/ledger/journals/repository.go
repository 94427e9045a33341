package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, orgID int64) ([]Entry, error)
	Get(ctx context.Context, orgID, id int64) (Entry, error)
	// Mutations run inside a single transaction so a failure mid-write never
	// leaves a partially persisted entry.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	AccountStates(ctx context.Context, orgID int64, ids []int64) (map[int64]bool, error)
	InsertEntry(ctx context.Context, in CreateInput, status EntryStatus) (Entry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) error
	LinkSource(ctx context.Context, orgID int64, module string, ref uuid.UUID, entryID int64) error
	GetEntryForUpdate(ctx context.Context, orgID, id int64) (Entry, error)
	GetLines(ctx context.Context, entryID int64) ([]Line, error)
	// TransitionStatus updates the status guarded by the expected current
	// status, stamping approval or posting metadata as the target requires.
	TransitionStatus(ctx context.Context, orgID, id int64, from, to EntryStatus, actorID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, org_id, number, date, memo, status, source_module, source_ref, created_by, approved_by, approved_at, posted_at, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.OrgID, &e.Number, &e.Date, &e.Memo, &e.Status, &e.SourceModule, &e.SourceRef, &e.CreatedBy, &e.ApprovedBy, &e.ApprovedAt, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 ORDER BY number DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND id=$2`, orgID, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ledgershared.ErrJournalNotFound
		}
		return Entry{}, err
	}
	lines, err := fetchLines(ctx, r.db, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) AccountStates(ctx context.Context, orgID int64, ids []int64) (map[int64]bool, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, is_active FROM gl_accounts WHERE org_id=$1 AND id = ANY($2)`, orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		var active bool
		if err := rows.Scan(&id, &active); err != nil {
			return nil, err
		}
		out[id] = active
	}
	return out, rows.Err()
}

func (r *txRepository) InsertEntry(ctx context.Context, in CreateInput, status EntryStatus) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, date, memo, status, source_module, source_ref, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, number, created_at, updated_at`,
		in.OrgID, in.Date, in.Memo, status, in.SourceModule, in.SourceRef, in.CreatedBy)
	entry := Entry{
		OrgID:        in.OrgID,
		Date:         in.Date,
		Memo:         in.Memo,
		Status:       status,
		SourceModule: in.SourceModule,
		SourceRef:    in.SourceRef,
		CreatedBy:    in.CreatedBy,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (je_id, account_id, debit, credit, memo, dim_department_id)
VALUES ($1,$2,$3,$4,$5,$6)`, entryID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit), line.Memo, nullIntPtr(line.DepartmentID)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, orgID int64, module string, ref uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (org_id, module, ref_id, je_id) VALUES ($1,$2,$3,$4)`, orgID, module, ref, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_source_links" {
			return ledgershared.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, orgID, id int64) (Entry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ledgershared.ErrJournalNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]Line, error) {
	return fetchLines(ctx, r.tx, entryID)
}

func (r *txRepository) TransitionStatus(ctx context.Context, orgID, id int64, from, to EntryStatus, actorID int64) error {
	var cmd pgconn.CommandTag
	var err error
	switch to {
	case StatusApproved:
		cmd, err = r.tx.Exec(ctx, `UPDATE journal_entries SET status=$4, approved_by=$5, approved_at=NOW(), updated_at=NOW()
WHERE org_id=$1 AND id=$2 AND status=$3`, orgID, id, from, to, actorID)
	case StatusPosted:
		cmd, err = r.tx.Exec(ctx, `UPDATE journal_entries SET status=$4, posted_at=NOW(), updated_at=NOW()
WHERE org_id=$1 AND id=$2 AND status=$3`, orgID, id, from, to)
	default:
		cmd, err = r.tx.Exec(ctx, `UPDATE journal_entries SET status=$4, updated_at=NOW()
WHERE org_id=$1 AND id=$2 AND status=$3`, orgID, id, from, to)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return internalshared.State(fmt.Sprintf("ledger: entry %d is no longer %s", id, from))
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func fetchLines(ctx context.Context, q queryer, entryID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, je_id, account_id, debit, credit, memo, dim_department_id, created_at, updated_at
FROM journal_lines WHERE je_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Memo, &line.DimDepartmentID, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Helpers
func nullIntPtr(val *int64) any {
	if val == nil || *val == 0 {
		return nil
	}
	return *val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
