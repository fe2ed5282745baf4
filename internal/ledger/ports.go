// Package ledger defines the ports between the dashboard and the places
// transactions go: the per-session store, the event feed and exports.
package ledger

import (
	"context"
	"errors"

	"keuangan/internal/core"
)

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrDuplicateID = errors.New("duplicate transaction id")
	ErrClosed      = errors.New("store closed")
)

type (
	// Store is an append-only list of transactions kept in insertion order.
	Store interface {
		// Append validates and stores tx after every earlier record.
		Append(ctx context.Context, tx core.Transaction) error
		// List returns a copy of all records, oldest first.
		List(ctx context.Context) ([]core.Transaction, error)
		// Get returns the record with the given id or ErrNotFound.
		Get(ctx context.Context, id int64) (core.Transaction, error)
		Close() error
	}

	// Publisher announces new transactions to the outside world.
	Publisher interface {
		PublishTransactionCreated(ctx context.Context, sessionID string, tx core.Transaction) error
	}

	// Exporter copies transactions to an external destination and returns a
	// reference to where they landed.
	Exporter interface {
		Export(ctx context.Context, txs []core.Transaction) (ref string, err error)
	}
)
