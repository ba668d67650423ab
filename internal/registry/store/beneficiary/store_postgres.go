package beneficiary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"purposepay/internal/platform/postgres"
	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
	txcontext "purposepay/pkg/platform/tx"
)

// PostgresStore persists beneficiaries in PostgreSQL. Enumeration order is the
// BIGSERIAL seq column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const beneficiaryColumns = `address, status, registered_at, removed_at, total_received, total_spent`

func (s *PostgresStore) Create(ctx context.Context, b *models.Beneficiary) error {
	if b == nil {
		return fmt.Errorf("beneficiary is required")
	}
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO beneficiaries (address, status, registered_at, removed_at, total_received, total_spent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.Address.Key(), string(b.Status), b.RegisteredAt, nullTime(b.RemovedAt), b.TotalReceived.String(), b.TotalSpent.String())
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert beneficiary: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, addr id.Address) (*models.Beneficiary, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE address = $1`, addr.Key())
	b, err := scanBeneficiary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find beneficiary: %w", err)
	}
	return b, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, applies validate and
// mutate, and writes the result back. Outside a caller transaction it opens
// its own.
func (s *PostgresStore) Execute(ctx context.Context, addr id.Address, validate func(*models.Beneficiary) error, mutate func(*models.Beneficiary) error) (*models.Beneficiary, error) {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, sqlTx, addr, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin beneficiary tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	b, err := s.execute(ctx, sqlTx, addr, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit beneficiary tx: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) execute(ctx context.Context, sqlTx *sql.Tx, addr id.Address, validate func(*models.Beneficiary) error, mutate func(*models.Beneficiary) error) (*models.Beneficiary, error) {
	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE address = $1 FOR UPDATE`, addr.Key())
	b, err := scanBeneficiary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock beneficiary: %w", err)
	}
	if err := validate(b); err != nil {
		return nil, err
	}
	if err := mutate(b); err != nil {
		return nil, err
	}
	_, err = sqlTx.ExecContext(ctx, `
		UPDATE beneficiaries
		SET status = $2, removed_at = $3, total_received = $4, total_spent = $5
		WHERE address = $1
	`, b.Address.Key(), string(b.Status), nullTime(b.RemovedAt), b.TotalReceived.String(), b.TotalSpent.String())
	if err != nil {
		return nil, fmt.Errorf("update beneficiary: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Beneficiary, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	defer rows.Close()

	out := []*models.Beneficiary{}
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beneficiary: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate beneficiaries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM beneficiaries WHERE status = 'active'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active beneficiaries: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBeneficiary(row rowScanner) (*models.Beneficiary, error) {
	var (
		address, status string
		received, spent string
		b               models.Beneficiary
		removedAt       sql.NullTime
	)
	if err := row.Scan(&address, &status, &b.RegisteredAt, &removedAt, &received, &spent); err != nil {
		return nil, err
	}
	var err error
	if b.Address, err = id.ParseAddress(address); err != nil {
		return nil, fmt.Errorf("stored address %q: %w", address, err)
	}
	if b.TotalReceived, err = id.ParseAmount(received); err != nil {
		return nil, fmt.Errorf("stored total_received: %w", err)
	}
	if b.TotalSpent, err = id.ParseAmount(spent); err != nil {
		return nil, fmt.Errorf("stored total_spent: %w", err)
	}
	b.Status = models.Status(status)
	if removedAt.Valid {
		t := removedAt.Time
		b.RemovedAt = &t
	}
	return &b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
