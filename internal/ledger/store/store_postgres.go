package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"purposepay/internal/ledger/models"
	id "purposepay/pkg/domain"
	txcontext "purposepay/pkg/platform/tx"
)

// PostgresBalanceStore keeps balances in ledger_balances and the supply in
// the single ledger_supply row. Rows are locked FOR UPDATE before they are
// rewritten.
type PostgresBalanceStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresBalanceStore {
	return &PostgresBalanceStore{db: db}
}

func (s *PostgresBalanceStore) BalanceOf(ctx context.Context, addr id.Address) (id.Amount, error) {
	var raw string
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT balance FROM ledger_balances WHERE address = $1`, addr.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return id.Amount{}, nil
	}
	if err != nil {
		return id.Amount{}, fmt.Errorf("read balance: %w", err)
	}
	return parseStored(raw)
}

func (s *PostgresBalanceStore) TotalSupply(ctx context.Context) (id.Amount, error) {
	var raw string
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT total FROM ledger_supply WHERE id = 1`).Scan(&raw)
	if err != nil {
		return id.Amount{}, fmt.Errorf("read supply: %w", err)
	}
	return parseStored(raw)
}

func (s *PostgresBalanceStore) Mint(ctx context.Context, to id.Address, amount id.Amount) error {
	return s.inTx(ctx, func(sqlTx *sql.Tx) error {
		var raw string
		if err := sqlTx.QueryRowContext(ctx,
			`SELECT total FROM ledger_supply WHERE id = 1 FOR UPDATE`).Scan(&raw); err != nil {
			return fmt.Errorf("lock supply: %w", err)
		}
		supply, err := parseStored(raw)
		if err != nil {
			return err
		}
		if supply, err = models.GrowSupply(supply, amount); err != nil {
			return err
		}
		balance, err := lockBalance(ctx, sqlTx, to)
		if err != nil {
			return err
		}
		if balance, err = models.Credit(balance, amount); err != nil {
			return err
		}
		if err := writeBalance(ctx, sqlTx, to, balance); err != nil {
			return err
		}
		if _, err := sqlTx.ExecContext(ctx,
			`UPDATE ledger_supply SET total = $1 WHERE id = 1`, supply.String()); err != nil {
			return fmt.Errorf("update supply: %w", err)
		}
		return nil
	})
}

// Move locks both rows in address order so concurrent opposite transfers
// cannot deadlock.
func (s *PostgresBalanceStore) Move(ctx context.Context, from, to id.Address, amount id.Amount) error {
	return s.inTx(ctx, func(sqlTx *sql.Tx) error {
		first, second := from, to
		if second.Key() < first.Key() {
			first, second = second, first
		}
		locked := map[string]id.Amount{}
		for _, addr := range []id.Address{first, second} {
			if _, seen := locked[addr.Key()]; seen {
				continue
			}
			balance, err := lockBalance(ctx, sqlTx, addr)
			if err != nil {
				return err
			}
			locked[addr.Key()] = balance
		}

		debited, err := models.Debit(locked[from.Key()], amount)
		if err != nil {
			return err
		}
		if from.Key() == to.Key() {
			return nil
		}
		credited, err := models.Credit(locked[to.Key()], amount)
		if err != nil {
			return err
		}
		if err := writeBalance(ctx, sqlTx, from, debited); err != nil {
			return err
		}
		return writeBalance(ctx, sqlTx, to, credited)
	})
}

func (s *PostgresBalanceStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return fn(sqlTx)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := fn(sqlTx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// lockBalance returns zero for addresses without a row; the following upsert
// creates it.
func lockBalance(ctx context.Context, sqlTx *sql.Tx, addr id.Address) (id.Amount, error) {
	var raw string
	err := sqlTx.QueryRowContext(ctx,
		`SELECT balance FROM ledger_balances WHERE address = $1 FOR UPDATE`, addr.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return id.Amount{}, nil
	}
	if err != nil {
		return id.Amount{}, fmt.Errorf("lock balance: %w", err)
	}
	return parseStored(raw)
}

func writeBalance(ctx context.Context, sqlTx *sql.Tx, addr id.Address, balance id.Amount) error {
	_, err := sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_balances (address, balance) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance
	`, addr.Key(), balance.String())
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

func parseStored(raw string) (id.Amount, error) {
	amount, err := id.ParseAmount(raw)
	if err != nil {
		return id.Amount{}, fmt.Errorf("stored amount %q: %w", raw, err)
	}
	return amount, nil
}
