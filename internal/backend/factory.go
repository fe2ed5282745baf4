package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"keuangan/internal/amqp"
	"keuangan/internal/ledger"
	"keuangan/internal/ledger/memory"
	"keuangan/internal/log"
	gsheet "keuangan/internal/sheets/google"
	memsheet "keuangan/internal/sheets/memory"
	"keuangan/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	config Config
	logger *log.Logger

	mu        sync.Mutex
	readiness *storage.SQLiteRepository
}

// NewFactory creates a new backend factory
func NewFactory(config Config, logger *log.Logger) (*DefaultFactory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{config: config, logger: logger.WithComponent(log.ComponentBackend)}, nil
}

// NewStore implements Factory.NewStore
func (f *DefaultFactory) NewStore(ctx context.Context) (ledger.Store, error) {
	switch f.config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", f.config.Type)
	}
}

// Ping reports whether new stores can still be served. The sqlite backend
// keeps one idle database open for the check; the memory backend has nothing
// that can fail.
func (f *DefaultFactory) Ping(ctx context.Context) error {
	if f.config.Type != SQLiteBackend {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readiness == nil {
		repo, err := storage.NewSQLiteRepository(ctx)
		if err != nil {
			return fmt.Errorf("open readiness database: %w", err)
		}
		f.readiness = repo
	}
	if err := f.readiness.Ping(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close releases the readiness database, if one was opened.
func (f *DefaultFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readiness == nil {
		return nil
	}
	err := f.readiness.Close()
	f.readiness = nil
	return err
}

// Integrations connects the event feed and the sheets export when they are
// configured. A broker that cannot be reached disables the feed with a
// warning instead of failing startup; the dashboard works without it.
func (f *DefaultFactory) Integrations(ctx context.Context) (*Integrations, error) {
	out := &Integrations{}
	var cleanups []CleanupFunc

	if f.config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, f.config.AMQPURL, f.config.AMQPExchange, f.config.AMQPQueue, f.logger)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.WarnContext(ctx, "failed to initialize AMQP client, continuing without event feed", log.FieldError, err.Error())
		} else {
			out.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.InfoContext(ctx, "initialized AMQP client",
				"exchange", f.config.AMQPExchange, "queue", f.config.AMQPQueue)
		}
	}

	switch {
	case f.config.SheetsTarget == "memory":
		out.Exporter = memsheet.New(f.config.GoogleSheetName)
		f.logger.InfoContext(ctx, "using in-memory sheet for exports")
	case f.config.GoogleSpreadsheetID != "":
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   f.config.GoogleSpreadsheetID,
			SheetName:       f.config.GoogleSheetName,
			CredentialsJSON: f.config.GoogleServiceAccountJSON,
			CredentialsFile: f.config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			for _, c := range cleanups {
				c()
			}
			return nil, fmt.Errorf("failed to initialize Google Sheets export: %w", err)
		}
		out.Exporter = client
	}

	out.Cleanup = func() error {
		var errs []error
		for _, c := range cleanups {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "backend ready",
		"ledger", f.config.Type.String(),
		"feed_enabled", out.Publisher != nil,
		"sheets_enabled", out.Exporter != nil)
	return out, nil
}
