package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"keuangan/internal/form"
)

// errBadID is returned for transaction ids that are not positive integers.
var errBadID = errors.New("invalid transaction id")

// DraftFields holds the form inputs present in a request. A nil field was
// not posted and leaves the draft untouched.
type DraftFields struct {
	Type        *string
	Description *string
	Amount      *string
	Category    *string
}

// ParseDraftFields picks the draft inputs out of posted form values.
func ParseDraftFields(values url.Values) DraftFields {
	get := func(key string) *string {
		if _, ok := values[key]; !ok {
			return nil
		}
		v := sanitizeInput(values.Get(key))
		return &v
	}
	return DraftFields{
		Type:        get("type"),
		Description: get("description"),
		Amount:      get("amount"),
		Category:    get("category"),
	}
}

// Apply copies the posted inputs onto f. The type goes first since selecting
// a type, even the current one, resets the category.
func (p DraftFields) Apply(f *form.Form) error {
	if p.Type != nil {
		if err := f.SelectType(*p.Type); err != nil {
			return &form.ValidationError{Field: "type", Err: err}
		}
	}
	if p.Description != nil {
		f.SetDescription(*p.Description)
	}
	if p.Amount != nil {
		f.SetAmount(*p.Amount)
	}
	if p.Category != nil && *p.Category != "" {
		if err := f.SelectCategory(*p.Category); err != nil {
			return &form.ValidationError{Field: "category", Err: err}
		}
	}
	return nil
}

// ParseTransactionID parses a transaction id from a path segment.
func ParseTransactionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadID, raw)
	}
	return id, nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
