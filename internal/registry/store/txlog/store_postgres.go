package txlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
	txcontext "purposepay/pkg/platform/tx"
)

// PostgresTransactionLog stores the spending log in registry_transactions.
// Indexes come from the registry_counters row, which the UPDATE locks until
// the surrounding transaction ends, so indexes stay gapless.
type PostgresTransactionLog struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresTransactionLog {
	return &PostgresTransactionLog{db: db}
}

const (
	transactionCounter = "transactions"
	transactionColumns = `idx, from_address, to_address, amount, category, recorded_at, success`
)

func (l *PostgresTransactionLog) Append(ctx context.Context, tx *models.Transaction) (uint64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if sqlTx, ok := txcontext.From(ctx); ok {
		return l.append(ctx, sqlTx, tx)
	}

	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	index, err := l.append(ctx, sqlTx, tx)
	if err != nil {
		return 0, err
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append tx: %w", err)
	}
	return index, nil
}

func (l *PostgresTransactionLog) append(ctx context.Context, sqlTx *sql.Tx, tx *models.Transaction) (uint64, error) {
	var next int64
	err := sqlTx.QueryRowContext(ctx,
		`UPDATE registry_counters SET value = value + 1 WHERE name = $1 RETURNING value`,
		transactionCounter).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance transaction counter: %w", err)
	}
	index := uint64(next - 1)

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO registry_transactions (idx, from_address, to_address, amount, category, recorded_at, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, int64(index), tx.From.Key(), tx.To.Key(), tx.Amount.String(), int(tx.Category), tx.Timestamp, tx.Success)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	tx.Index = index
	return index, nil
}

func (l *PostgresTransactionLog) Get(ctx context.Context, index uint64) (*models.Transaction, error) {
	if index > math.MaxInt64 {
		return nil, sentinel.ErrNotFound
	}
	row := txcontext.Executor(ctx, l.db).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM registry_transactions WHERE idx = $1`, int64(index))
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (l *PostgresTransactionLog) Count(ctx context.Context) (uint64, error) {
	var count int64
	err := txcontext.Executor(ctx, l.db).QueryRowContext(ctx,
		`SELECT value FROM registry_counters WHERE name = $1`, transactionCounter).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return uint64(count), nil
}

func (l *PostgresTransactionLog) Range(ctx context.Context, from uint64, limit int) ([]*models.Transaction, error) {
	// idx is a BIGINT, so nothing lives past MaxInt64.
	if limit <= 0 || from > math.MaxInt64 {
		return []*models.Transaction{}, nil
	}
	return l.query(ctx, `SELECT `+transactionColumns+` FROM registry_transactions
		WHERE idx >= $1 ORDER BY idx LIMIT $2`, int64(from), limit)
}

func (l *PostgresTransactionLog) ListBySender(ctx context.Context, from id.Address) ([]*models.Transaction, error) {
	return l.query(ctx, `SELECT `+transactionColumns+` FROM registry_transactions
		WHERE from_address = $1 ORDER BY idx`, from.Key())
}

func (l *PostgresTransactionLog) ListByMerchant(ctx context.Context, to id.Address) ([]*models.Transaction, error) {
	return l.query(ctx, `SELECT `+transactionColumns+` FROM registry_transactions
		WHERE to_address = $1 ORDER BY idx`, to.Key())
}

func (l *PostgresTransactionLog) query(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := txcontext.Executor(ctx, l.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []*models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		index         int64
		from, to, amt string
		category      int
		tx            models.Transaction
	)
	if err := row.Scan(&index, &from, &to, &amt, &category, &tx.Timestamp, &tx.Success); err != nil {
		return nil, err
	}
	var err error
	if tx.From, err = id.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("stored from address %q: %w", from, err)
	}
	if tx.To, err = id.ParseAddress(to); err != nil {
		return nil, fmt.Errorf("stored to address %q: %w", to, err)
	}
	if tx.Amount, err = id.ParseAmount(amt); err != nil {
		return nil, fmt.Errorf("stored amount: %w", err)
	}
	if tx.Category, err = models.CategoryFromCode(category); err != nil {
		return nil, fmt.Errorf("stored category: %w", err)
	}
	tx.Index = uint64(index)
	return &tx, nil
}
