// Package google appends transactions to a Google Sheet using a service
// account.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"keuangan/internal/core"
	"keuangan/internal/export"
	"keuangan/internal/ledger"
	"keuangan/internal/log"
)

var ErrNotConfigured = errors.New("sheets export is not configured")

// Ensure interface conformance
var _ ledger.Exporter = (*Client)(nil)

type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	// ClientOptions replace credential handling entirely, for tests.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New builds a Sheets client. Credentials come from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, ErrNotConfigured
	}
	if opts.SheetName == "" {
		opts.SheetName = "Transactions"
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	clientOpts := opts.ClientOptions
	if clientOpts == nil {
		creds, err := credentials(opts)
		if err != nil {
			return nil, err
		}
		clientOpts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "sheets export ready", "sheet", opts.SheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		logger:        logger,
	}, nil
}

func credentials(opts Options) ([]byte, error) {
	file := strings.TrimSpace(opts.CredentialsFile)
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case file == "":
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if file == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// Export appends one row per transaction below the existing data and
// returns the range that was written.
func (c *Client) Export(ctx context.Context, txs []core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(txs) == 0 {
		return "", nil
	}

	// RAW stores user text literally, so a description is never run as a formula.
	vr := &gsheet.ValueRange{Values: values(txs)}
	rng := fmt.Sprintf("%s!A:%c", c.sheetName, 'A'+len(export.Header)-1)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "transactions exported", log.FieldCount, len(txs), log.FieldSheetsRange, ref)
	return ref, nil
}

// values renders txs in export.Header order with typed amount and photo
// cells, since RAW input keeps strings as text.
func values(txs []core.Transaction) [][]any {
	out := make([][]any, len(txs))
	for i, tx := range txs {
		out[i] = []any{
			tx.Date,
			tx.Description,
			string(tx.Category),
			string(tx.Type),
			json.Number(tx.Amount.String()),
			tx.HasPhoto(),
		}
	}
	return out
}
