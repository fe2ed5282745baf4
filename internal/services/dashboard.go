// Package services holds the per-session dashboard: the state container that
// owns a session's transactions, its entry form and the selected photo.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"keuangan/internal/core"
	"keuangan/internal/form"
	"keuangan/internal/ledger"
	"keuangan/internal/log"
)

// ErrNoPhoto is returned when selecting a transaction without a photo.
var ErrNoPhoto = errors.New("transaction has no photo")

// SelectedPhoto is what the photo modal shows.
type SelectedPhoto struct {
	TransactionID int64
	Photo         string
	Description   string
}

// Snapshot is a consistent read of everything the page renders.
type Snapshot struct {
	Transactions []core.Transaction
	Totals       core.Totals
	ChartRows    []core.ChartRow
	Selected     *SelectedPhoto
}

// Dashboard is safe for concurrent use. AddTransaction, SelectPhoto and
// ClearPhoto are its only mutators; everything else is derived on read.
type Dashboard struct {
	mu        sync.Mutex
	sessionID string
	store     ledger.Store
	form      *form.Form
	publisher ledger.Publisher
	selected  *SelectedPhoto
	logger    *log.Logger
}

// Deps bundles what a Dashboard needs. Publisher and Logger are optional.
type Deps struct {
	SessionID string
	Store     ledger.Store
	Form      *form.Form
	Publisher ledger.Publisher
	Logger    *log.Logger
}

func NewDashboard(d Deps) *Dashboard {
	if d.Form == nil {
		d.Form = form.New(form.Options{})
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	return &Dashboard{
		sessionID: d.SessionID,
		store:     d.Store,
		form:      d.Form,
		publisher: d.Publisher,
		logger:    d.Logger.WithComponent(log.ComponentDashboard).With(log.FieldSessionID, d.SessionID),
	}
}

// Form returns the session's entry form.
func (d *Dashboard) Form() *form.Form { return d.form }

// SessionID returns the id of the owning session.
func (d *Dashboard) SessionID() string { return d.sessionID }

// AddTransaction appends tx after all earlier records and announces it.
// A failed announcement is logged and does not fail the add.
func (d *Dashboard) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if err := d.add(ctx, tx); err != nil {
		return err
	}
	d.announce(ctx, tx)
	return nil
}

// SubmitForm validates the draft and, when it passes, adds the resulting
// transaction. The draft is reset only after a successful add. The event is
// published after the form lock is released.
func (d *Dashboard) SubmitForm(ctx context.Context) (core.Transaction, error) {
	tx, err := d.form.Submit(func(tx core.Transaction) error {
		return d.add(ctx, tx)
	})
	if err != nil {
		return tx, err
	}
	d.announce(ctx, tx)
	return tx, nil
}

func (d *Dashboard) add(ctx context.Context, tx core.Transaction) error {
	d.mu.Lock()
	err := d.store.Append(ctx, tx)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}

	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpCreate)
	d.logger.InfoContext(ctx, "transaction added", fields.ToSlice()...)
	return nil
}

func (d *Dashboard) announce(ctx context.Context, tx core.Transaction) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishTransactionCreated(ctx, d.sessionID, tx); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish transaction event",
			log.NewFields().WithTransaction(tx).WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}

// SelectPhoto opens the modal for transaction id, replacing any previous
// selection.
func (d *Dashboard) SelectPhoto(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx, err := d.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("select photo %d: %w", id, err)
	}
	if !tx.HasPhoto() {
		return fmt.Errorf("select photo %d: %w", id, ErrNoPhoto)
	}
	d.selected = &SelectedPhoto{TransactionID: tx.ID, Photo: tx.Photo, Description: tx.Description}
	return nil
}

// ClearPhoto closes the modal. Clearing with nothing selected is a no-op.
func (d *Dashboard) ClearPhoto() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = nil
}

// Selected returns a copy of the current selection, or nil.
func (d *Dashboard) Selected() *SelectedPhoto {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copySelected(d.selected)
}

func (d *Dashboard) Transactions(ctx context.Context) ([]core.Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.List(ctx)
}

func (d *Dashboard) Totals(ctx context.Context) (core.Totals, error) {
	txs, err := d.Transactions(ctx)
	if err != nil {
		return core.Totals{}, err
	}
	return core.ComputeTotals(txs), nil
}

func (d *Dashboard) ChartRows(ctx context.Context) ([]core.ChartRow, error) {
	txs, err := d.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.ChartRows(txs), nil
}

// Snapshot reads the records and the selection under one lock.
func (d *Dashboard) Snapshot(ctx context.Context) (Snapshot, error) {
	d.mu.Lock()
	txs, err := d.store.List(ctx)
	sel := copySelected(d.selected)
	d.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Transactions: txs,
		Totals:       core.ComputeTotals(txs),
		ChartRows:    core.ChartRows(txs),
		Selected:     sel,
	}, nil
}

// Close drops the form draft and releases the store.
func (d *Dashboard) Close() error {
	d.form.Reset()
	d.ClearPhoto()
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("close dashboard store: %w", err)
	}
	return nil
}

func copySelected(s *SelectedPhoto) *SelectedPhoto {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
