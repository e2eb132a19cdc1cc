package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CaseRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS workbooks (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	case_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS test_cases (
	id TEXT PRIMARY KEY,
	workbook_id TEXT NOT NULL REFERENCES workbooks(id) ON DELETE CASCADE,
	case_id TEXT NOT NULL,
	title TEXT NOT NULL,
	module TEXT,
	description TEXT,
	steps TEXT,
	expected_results TEXT,
	priority TEXT,
	risk TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workbooks_status ON workbooks(status);
CREATE INDEX IF NOT EXISTS idx_test_cases_workbook ON test_cases(workbook_id);
CREATE INDEX IF NOT EXISTS idx_test_cases_module ON test_cases(module);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CaseRepository) CreateWorkbook(ctx context.Context, wb *domain.Workbook) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO workbooks (
	id, filename, mime_type, storage_path, case_count, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		wb.ID, wb.Filename, wb.MimeType, wb.StoragePath, wb.CaseCount,
		string(wb.Status), wb.Error, wb.CreatedAt, wb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workbook: %w", err)
	}
	return nil
}

func (r *CaseRepository) GetWorkbook(ctx context.Context, id string) (*domain.Workbook, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, case_count, status, error_message, created_at, updated_at
FROM workbooks
WHERE id = $1
`, id)

	var wb domain.Workbook
	var status string

	err := row.Scan(
		&wb.ID, &wb.Filename, &wb.MimeType, &wb.StoragePath, &wb.CaseCount,
		&status, &wb.Error, &wb.CreatedAt, &wb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrWorkbookNotFound, "get workbook", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan workbook: %w", err)
	}

	wb.Status = domain.WorkbookStatus(status)
	return &wb, nil
}

func (r *CaseRepository) UpdateWorkbookStatus(ctx context.Context, id string, status domain.WorkbookStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE workbooks
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update workbook status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workbook status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrWorkbookNotFound, "update workbook status", fmt.Errorf("id %s", id))
	}
	return nil
}

// ReplaceWorkbookCases swaps the workbook's rows atomically and refreshes its
// case_count, so reprocessing the same file never leaves stale cases behind.
func (r *CaseRepository) ReplaceWorkbookCases(ctx context.Context, workbookID string, cases []domain.TestCase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_cases WHERE workbook_id = $1`, workbookID); err != nil {
		return fmt.Errorf("delete stale cases: %w", err)
	}

	for _, tc := range cases {
		_, err := tx.ExecContext(ctx, `
INSERT INTO test_cases (
	id, workbook_id, case_id, title, module, description, steps, expected_results, priority, risk, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
			tc.ID, workbookID, tc.CaseID, tc.Title, tc.Module, tc.Description,
			tc.Steps, tc.ExpectedResults, tc.Priority, tc.Risk, tc.CreatedAt, tc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert test case %s: %w", tc.CaseID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE workbooks SET case_count = $2, updated_at = $3 WHERE id = $1
`, workbookID, len(cases), time.Now().UTC()); err != nil {
		return fmt.Errorf("update case count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}
	return nil
}

func (r *CaseRepository) ListWorkbookCases(ctx context.Context, workbookID string) ([]domain.TestCase, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, workbook_id, case_id, title, module, description, steps, expected_results, priority, risk, created_at, updated_at
FROM test_cases
WHERE workbook_id = $1
ORDER BY case_id
`, workbookID)
	if err != nil {
		return nil, fmt.Errorf("query workbook cases: %w", err)
	}
	defer rows.Close()

	var out []domain.TestCase
	for rows.Next() {
		var tc domain.TestCase
		err := rows.Scan(
			&tc.ID, &tc.WorkbookID, &tc.CaseID, &tc.Title, &tc.Module, &tc.Description,
			&tc.Steps, &tc.ExpectedResults, &tc.Priority, &tc.Risk, &tc.CreatedAt, &tc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test cases: %w", err)
	}
	return out, nil
}
