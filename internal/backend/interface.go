// Package backend builds the per-session ledger stores and the optional
// outbound integrations from configuration.
package backend

import (
	"context"

	"keuangan/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Integrations are the process-wide outbound adapters. Either field may be
// nil when the integration is not configured.
type Integrations struct {
	Publisher ledger.Publisher
	Exporter  ledger.Exporter
	Cleanup   CleanupFunc
}

// Factory creates a fresh, empty store for every new session.
type Factory interface {
	NewStore(ctx context.Context) (ledger.Store, error)
}

// BackendType selects the store implementation. Both keep data in memory.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
