package merchant

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

// PostgresStore persists merchants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const merchantColumns = `address, status, category, name, registered_at, removed_at`

func (s *PostgresStore) Create(ctx context.Context, m *models.Merchant) error {
	if m == nil {
		return fmt.Errorf("merchant is required")
	}
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO merchants (address, status, category, name, registered_at, removed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.Address.Key(), string(m.Status), int(m.Category), m.Name, m.RegisteredAt, nullTime(m.RemovedAt))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, addr id.Address) (*models.Merchant, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE address = $1`, addr.Key())
	m, err := scanMerchant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find merchant: %w", err)
	}
	return m, nil
}

// Execute locks the row, applies validate and mutate, and writes status back.
// Category and name are never updated.
func (s *PostgresStore) Execute(ctx context.Context, addr id.Address, validate func(*models.Merchant) error, mutate func(*models.Merchant) error) (*models.Merchant, error) {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, sqlTx, addr, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merchant tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	m, err := s.execute(ctx, sqlTx, addr, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merchant tx: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) execute(ctx context.Context, sqlTx *sql.Tx, addr id.Address, validate func(*models.Merchant) error, mutate func(*models.Merchant) error) (*models.Merchant, error) {
	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE address = $1 FOR UPDATE`, addr.Key())
	m, err := scanMerchant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock merchant: %w", err)
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	if err := mutate(m); err != nil {
		return nil, err
	}
	_, err = sqlTx.ExecContext(ctx,
		`UPDATE merchants SET status = $2, removed_at = $3 WHERE address = $1`,
		m.Address.Key(), string(m.Status), nullTime(m.RemovedAt))
	if err != nil {
		return nil, fmt.Errorf("update merchant: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Merchant, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+merchantColumns+` FROM merchants ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	out := []*models.Merchant{}
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchants: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM merchants WHERE status = 'active'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active merchants: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMerchant(row rowScanner) (*models.Merchant, error) {
	var (
		address, status string
		category        int
		m               models.Merchant
		removedAt       sql.NullTime
	)
	if err := row.Scan(&address, &status, &category, &m.Name, &m.RegisteredAt, &removedAt); err != nil {
		return nil, err
	}
	var err error
	if m.Address, err = id.ParseAddress(address); err != nil {
		return nil, fmt.Errorf("stored address %q: %w", address, err)
	}
	if m.Category, err = models.CategoryFromCode(category); err != nil {
		return nil, fmt.Errorf("stored category %d: %w", category, err)
	}
	m.Status = models.Status(status)
	if removedAt.Valid {
		t := removedAt.Time
		m.RemovedAt = &t
	}
	return &m, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
