package core

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Type = "income"
	Expense Type = "expense"
)

type (
	// Type tells whether a transaction adds to or subtracts from the balance.
	Type string

	// Category is a lower-case token drawn from the fixed list of a Type.
	Category string

	// Transaction is one recorded income or expense event. It is never
	// mutated after creation.
	Transaction struct {
		ID          int64
		Description string
		Amount      decimal.Decimal // always positive; sign is implied by Type
		Type        Type
		Category    Category
		Photo       string // inline data URL, empty when no photo was attached
		Date        string // display date, formatted once at creation
		CreatedAt   time.Time
	}
)

const MaxDescriptionLength = 200

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountRange      = errors.New("amount out of range")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrMissingID        = errors.New("missing transaction id")
)

// categories holds the ordered category list per type. The first entry is
// the default selection.
var categories = map[Type][]Category{
	Income:  {"salary", "bonus", "investment", "freelance", "other"},
	Expense: {"food", "transport", "utilities", "entertainment", "shopping", "health", "other"},
}

// Types returns the transaction types in display order.
func Types() []Type {
	return []Type{Income, Expense}
}

// ParseType converts a raw form value into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := categories[t]
	return ok
}

// Label returns the capitalised type name used on buttons and badges.
func (t Type) Label() string {
	return Capitalize(string(t))
}

// Categories returns a copy of the ordered category list for t.
func (t Type) Categories() []Category {
	return append([]Category(nil), categories[t]...)
}

// DefaultCategory returns the first category of t, or "" for unknown types.
func (t Type) DefaultCategory() Category {
	list := categories[t]
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// Allows reports whether c belongs to the category list of t.
func (t Type) Allows(c Category) bool {
	for _, v := range categories[t] {
		if v == c {
			return true
		}
	}
	return false
}

// Label returns the category with its first letter upper-cased.
func (c Category) Label() string {
	return Capitalize(string(c))
}

// Capitalize upper-cases the first letter of s and leaves the rest untouched.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// HasPhoto reports whether a photo was attached.
func (t Transaction) HasPhoto() bool {
	return t.Photo != ""
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if t.ID == 0 {
		return ErrMissingID
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len([]rune(desc)) > MaxDescriptionLength {
		return ErrDescriptionLong
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amountInRange(t.Amount) {
		return ErrAmountRange
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Type.Allows(t.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// IDSource hands out strictly increasing ids derived from the wall clock in
// milliseconds. Two calls within the same millisecond still get distinct ids.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSource returns an IDSource reading the given clock; nil means time.Now.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns a fresh id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
