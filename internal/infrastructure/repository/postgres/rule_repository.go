package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/resilience"
)

// RuleHeader is the header row handed to prompts for rules stored in postgres.
var RuleHeader = []string{"規則代號", "說明"}

type RuleRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewRuleRepository(db *sql.DB, executor *resilience.Executor) *RuleRepository {
	return &RuleRepository{db: db, executor: executor}
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

func (r *RuleRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS vat_rules (
	position INTEGER PRIMARY KEY,
	rule_code TEXT NOT NULL,
	description TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// LoadRules returns the rule rows in position order. An empty table yields
// nil so callers fall back to the default rule sentence.
func (r *RuleRepository) LoadRules(ctx context.Context) (*domain.RuleTable, error) {
	var table *domain.RuleTable
	call := func(ctx context.Context) error {
		loaded, err := r.queryRules(ctx)
		if err != nil {
			return err
		}
		table = loaded
		return nil
	}

	var err error
	if r.executor != nil {
		err = r.executor.Execute(ctx, "postgres.load_rules", call, classifySQLError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "load rules", err)
	}
	return table, nil
}

func (r *RuleRepository) queryRules(ctx context.Context) (*domain.RuleTable, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT rule_code, description
FROM vat_rules
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var code, description string
		if err := rows.Scan(&code, &description); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, []string{code, description})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	header := make([]string, len(RuleHeader))
	copy(header, RuleHeader)
	return &domain.RuleTable{Source: "postgres:vat_rules", Header: header, Rows: out}, nil
}

// ReplaceRules swaps the whole rule table inside one transaction.
func (r *RuleRepository) ReplaceRules(ctx context.Context, rows [][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rules tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vat_rules`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	for i, row := range rows {
		if len(row) < 2 {
			return domain.WrapError(domain.ErrInvalidInput, "replace rules", fmt.Errorf("row %d has %d columns, want 2", i+1, len(row)))
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO vat_rules (position, rule_code, description, updated_at)
VALUES ($1, $2, $3, $4)
`, i+1, row[0], row[1], time.Now().UTC()); err != nil {
			return fmt.Errorf("insert rule %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rules tx: %w", err)
	}
	return nil
}

func classifySQLError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	return resilience.ErrorClassification{
		Retryable:     true,
		RecordFailure: true,
	}
}
