// Package form holds the transaction entry form: the draft being edited and
// the rules for turning it into a transaction.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"keuangan/internal/core"
)

// ErrSuperseded is returned when a photo decode finishes after a newer
// selection, a removal or a reset. Its result has been dropped.
var ErrSuperseded = errors.New("photo selection superseded")

// ValidationError is returned by Submit when the draft cannot become a
// transaction. The draft is left untouched.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Message is the user-facing text for the error.
func (e *ValidationError) Message() string {
	switch {
	case errors.Is(e.Err, core.ErrEmptyDescription):
		return "Please enter a description."
	case errors.Is(e.Err, core.ErrDescriptionLong):
		return fmt.Sprintf("Description must be at most %d characters.", core.MaxDescriptionLength)
	case errors.Is(e.Err, core.ErrInvalidAmount):
		return "Please enter an amount greater than zero."
	case errors.Is(e.Err, core.ErrAmountRange):
		return fmt.Sprintf("Amount must be at most %s with up to %d decimals.", core.FormatRupiah(core.MaxAmount), core.MaxAmountDecimals)
	case errors.Is(e.Err, core.ErrInvalidType):
		return "Please choose income or expense."
	case errors.Is(e.Err, core.ErrInvalidCategory):
		return "Please choose a category from the list."
	default:
		return "Please check the form and try again."
	}
}

// Draft is a snapshot of the form fields.
type Draft struct {
	Description  string
	AmountText   string
	Amount       decimal.NullDecimal // invalid when AmountText is not a number
	Type         core.Type
	Category     core.Category
	PhotoPreview string
	Decoding     bool // a photo decode is in flight
}

// Categories lists the choices for the draft's current type.
func (d Draft) Categories() []core.Category {
	return d.Type.Categories()
}

// HasPhoto reports whether a preview is attached.
func (d Draft) HasPhoto() bool {
	return d.PhotoPreview != ""
}

func defaultDraft() Draft {
	return Draft{Type: core.Income, Category: core.Income.DefaultCategory()}
}

// Options configures a Form. Zero values pick sensible defaults.
type Options struct {
	IDs           *core.IDSource
	Now           func() time.Time
	DateLayout    string
	MaxPhotoBytes int64
}

// Form is safe for concurrent use.
type Form struct {
	mu        sync.Mutex
	draft     Draft
	amountErr error
	gen       uint64
	ids       *core.IDSource
	now       func() time.Time
	layout    string
	maxPhoto  int64
}

func New(opts Options) *Form {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = core.NewIDSource(opts.Now)
	}
	if opts.DateLayout == "" {
		opts.DateLayout = core.DefaultDateLayout
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = 5 << 20
	}
	return &Form{
		draft:    defaultDraft(),
		ids:      opts.IDs,
		now:      opts.Now,
		layout:   opts.DateLayout,
		maxPhoto: opts.MaxPhotoBytes,
	}
}

// Draft returns the current fields.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SelectType switches the type and resets the category to the first entry
// of the new type's list.
func (f *Form) SelectType(raw string) error {
	t, err := core.ParseType(raw)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Type = t
	f.draft.Category = t.DefaultCategory()
	return nil
}

// SelectCategory accepts only categories of the current type.
func (f *Form) SelectCategory(raw string) error {
	c := core.Category(strings.TrimSpace(raw))
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.draft.Type.Allows(c) {
		return core.ErrInvalidCategory
	}
	f.draft.Category = c
	return nil
}

// SetAmount stores the raw text; text that is not a number leaves the
// amount empty.
func (f *Form) SetAmount(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.AmountText = strings.TrimSpace(raw)
	d, err := core.ParseAmount(raw)
	f.draft.Amount = decimal.NullDecimal{Decimal: d, Valid: err == nil}
	f.amountErr = err
}

func (f *Form) SetDescription(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Description = s
}

// BeginPhoto starts a new photo selection. The previous preview is cleared
// and the returned generation identifies this selection.
func (f *Form) BeginPhoto() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.draft.PhotoPreview = ""
	f.draft.Decoding = true
	return f.gen
}

// CompletePhoto applies a decode result if gen is still current. A failed
// decode leaves the preview unset.
func (f *Form) CompletePhoto(gen uint64, dataURL string, decodeErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return ErrSuperseded
	}
	f.draft.Decoding = false
	if decodeErr != nil {
		return decodeErr
	}
	f.draft.PhotoPreview = dataURL
	return nil
}

// AttachPhoto decodes r in the background and installs the result as the
// preview, unless a newer selection, removal or reset happened meanwhile.
func (f *Form) AttachPhoto(ctx context.Context, r io.Reader) error {
	gen := f.BeginPhoto()

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		url, err := EncodeDataURL(r, f.maxPhoto)
		done <- result{url, err}
	}()

	select {
	case res := <-done:
		return f.CompletePhoto(gen, res.url, res.err)
	case <-ctx.Done():
		if err := f.CompletePhoto(gen, "", ctx.Err()); errors.Is(err, ErrSuperseded) {
			return err
		}
		return ctx.Err()
	}
}

// RemovePhoto clears the preview and drops any decode in flight.
func (f *Form) RemovePhoto() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.draft.PhotoPreview = ""
	f.draft.Decoding = false
}

// Reset restores the defaults: income, salary, empty fields, no photo.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Form) reset() {
	f.gen++
	f.draft = defaultDraft()
	f.amountErr = nil
}

func (f *Form) validate() error {
	desc := strings.TrimSpace(f.draft.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}
	if len([]rune(desc)) > core.MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: core.ErrDescriptionLong}
	}
	if errors.Is(f.amountErr, core.ErrAmountRange) {
		return &ValidationError{Field: "amount", Err: core.ErrAmountRange}
	}
	if !f.draft.Amount.Valid || !f.draft.Amount.Decimal.IsPositive() {
		return &ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	return nil
}

// Submit turns the draft into a transaction and hands it to add. On success
// the draft is reset; on any error nothing is emitted and the draft stays.
func (f *Form) Submit(add func(core.Transaction) error) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.validate(); err != nil {
		return core.Transaction{}, err
	}

	now := f.now()
	tx := core.Transaction{
		ID:          f.ids.Next(),
		Description: strings.TrimSpace(f.draft.Description),
		Amount:      f.draft.Amount.Decimal,
		Type:        f.draft.Type,
		Category:    f.draft.Category,
		Photo:       f.draft.PhotoPreview,
		Date:        core.FormatDate(now, f.layout),
		CreatedAt:   now,
	}
	if err := add(tx); err != nil {
		return core.Transaction{}, err
	}
	f.reset()
	return tx, nil
}
