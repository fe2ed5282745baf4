// Package storage is the SQLite ledger store. Each repository owns a private
// in-memory database, so a session's records vanish with its repository.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"keuangan/internal/core"
	"keuangan/internal/ledger"
)

const (
	insertTx = `INSERT INTO transactions (id, description, amount, type, category, photo, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	selectTx = `SELECT id, description, amount, type, category, photo, date, created_at FROM transactions`
)

type SQLiteRepository struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewSQLiteRepository opens a fresh in-memory database and migrates it.
func NewSQLiteRepository(ctx context.Context) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ledger.ErrClosed
	}
	_, err := r.db.ExecContext(ctx, insertTx,
		tx.ID, tx.Description, tx.Amount, string(tx.Type), string(tx.Category),
		tx.Photo, tx.Date, tx.CreatedAt.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("append transaction %d: %w", tx.ID, ledger.ErrDuplicateID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ledger.ErrClosed
	}
	rows, err := r.db.QueryContext(ctx, selectTx+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return core.Transaction{}, ledger.ErrClosed
	}
	tx, err := scanTx(r.db.QueryRowContext(ctx, selectTx+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return tx, err
}

// Ping reports whether the database still answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ledger.ErrClosed
	}
	return r.db.PingContext(ctx)
}

// Close releases the database and everything in it.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTx(s scanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		amount    decimal.Decimal
		typ, cat  string
		createdAt int64
	)
	err := s.Scan(&tx.ID, &tx.Description, &amount, &typ, &cat, &tx.Photo, &tx.Date, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Amount = amount
	tx.Type = core.Type(typ)
	tx.Category = core.Category(cat)
	tx.CreatedAt = time.Unix(0, createdAt)
	return tx, nil
}
