// Package session maps browser sessions to their dashboards. Each session
// owns one dashboard and its store; when a session ends, expires or is
// evicted for capacity, its store is closed and its transactions are gone.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"keuangan/internal/backend"
	"keuangan/internal/cache"
	"keuangan/internal/core"
	"keuangan/internal/form"
	"keuangan/internal/ledger"
	"keuangan/internal/ledger/memory"
	"keuangan/internal/log"
	"keuangan/internal/services"
)

// ErrFull is returned when MaxSessions live sessions exist. Live sessions
// are never evicted to make room; only expiry or End frees a slot.
var ErrFull = errors.New("too many active sessions")

type Options struct {
	TTL           time.Duration
	MaxSessions   int
	DateLayout    string
	MaxPhotoBytes int64
	Publisher     ledger.Publisher
	Logger        *log.Logger

	// Now drives session expiry and transaction timestamps. Defaults to time.Now.
	Now func() time.Time
}

type Manager struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[*services.Dashboard]
	factory  backend.Factory
	ids      *core.IDSource
	opts     Options
	logger   *log.Logger
}

func NewManager(factory backend.Factory, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	m := &Manager{
		factory: factory,
		ids:     core.NewIDSource(opts.Now),
		opts:    opts,
		logger:  opts.Logger.WithComponent(log.ComponentSession),
	}
	m.sessions = cache.NewLRUCache[*services.Dashboard](opts.MaxSessions, opts.TTL,
		cache.WithEvictFunc[*services.Dashboard](m.evicted),
		cache.WithClock[*services.Dashboard](opts.Now))
	return m
}

func (m *Manager) evicted(id string, d *services.Dashboard) {
	fields := log.NewFields().WithSessionID(id).WithOperation(log.OpEvict)
	if err := d.Close(); err != nil {
		m.logger.Error("failed to close session", fields.WithError(err).ToSlice()...)
		return
	}
	m.logger.Debug("session closed", fields.ToSlice()...)
}

// Get returns the live dashboard for id and extends the session.
func (m *Manager) Get(id string) (*services.Dashboard, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return m.sessions.Get(id)
}

// Create starts a new session with an empty dashboard, or fails with ErrFull.
func (m *Manager) Create(ctx context.Context) (string, *services.Dashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(ctx)
}

func (m *Manager) create(ctx context.Context) (string, *services.Dashboard, error) {
	if m.sessions.Size() >= m.opts.MaxSessions && (m.sessions.CleanExpired() == 0 || m.sessions.Size() >= m.opts.MaxSessions) {
		m.logger.WarnContext(ctx, "session limit reached", log.FieldCount, m.sessions.Size())
		return "", nil, ErrFull
	}
	store, err := m.factory.NewStore(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("create session store: %w", err)
	}
	id := uuid.NewString()
	d := m.dashboard(id, store, m.opts.Publisher)
	m.sessions.Set(id, d)
	m.logger.DebugContext(ctx, "session started", log.FieldSessionID, id)
	return id, d, nil
}

// Ephemeral returns an empty dashboard that belongs to no session. It backs
// read-only requests from clients without a session; the caller closes it.
func (m *Manager) Ephemeral() *services.Dashboard {
	return m.dashboard("", memory.New(), nil)
}

func (m *Manager) dashboard(id string, store ledger.Store, pub ledger.Publisher) *services.Dashboard {
	return services.NewDashboard(services.Deps{
		SessionID: id,
		Store:     store,
		Form: form.New(form.Options{
			IDs:           m.ids,
			Now:           m.opts.Now,
			DateLayout:    m.opts.DateLayout,
			MaxPhotoBytes: m.opts.MaxPhotoBytes,
		}),
		Publisher: pub,
		Logger:    m.opts.Logger,
	})
}

// Obtain returns the session for id, creating a new one when id is unknown,
// malformed or expired. created reports whether a new session was made.
func (m *Manager) Obtain(ctx context.Context, id string) (sid string, d *services.Dashboard, created bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.Get(id); ok {
		return id, d, false, nil
	}
	sid, d, err = m.create(ctx)
	return sid, d, err == nil, err
}

// End discards the session and everything in it.
func (m *Manager) End(id string) bool {
	return m.sessions.Delete(id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.Size()
}

// Cleaner exposes expiry sweeping for a cache.Manager.
func (m *Manager) Cleaner() cache.Cleaner {
	return m.sessions
}

// Close ends every session.
func (m *Manager) Close() {
	if n := m.sessions.Purge(); n > 0 {
		m.logger.Info("sessions closed", log.FieldCount, n)
	}
}
