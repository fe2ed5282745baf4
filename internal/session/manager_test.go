package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"keuangan/internal/core"
	"keuangan/internal/ledger"
	"keuangan/internal/ledger/memory"
)

type countingFactory struct {
	mu     sync.Mutex
	stores []*memory.Store
	err    error
}

func (f *countingFactory) NewStore(context.Context) (ledger.Store, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := memory.New()
	f.stores = append(f.stores, s)
	return s, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func sampleTx(id int64) core.Transaction {
	return core.Transaction{ID: id, Description: "x", Amount: decimal.NewFromInt(1), Type: core.Income, Category: "salary"}
}

func TestObtainCreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&countingFactory{}, Options{})

	id, d, created, err := m.Obtain(ctx, "")
	if err != nil || !created || d == nil || id == "" {
		t.Fatalf("expected new session, got %q %v %v", id, created, err)
	}
	id2, d2, created, err := m.Obtain(ctx, id)
	if err != nil || created || id2 != id || d2 != d {
		t.Fatalf("expected the same session back")
	}
	if _, _, created, _ := m.Obtain(ctx, "not-a-uuid"); !created {
		t.Fatalf("malformed id should start a new session")
	}
	if m.Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Count())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&countingFactory{}, Options{})
	_, a, _ := m.Create(ctx)
	_, b, _ := m.Create(ctx)
	if err := a.AddTransaction(ctx, sampleTx(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if txs, _ := b.Transactions(ctx); len(txs) != 0 {
		t.Fatalf("session b sees session a's data")
	}
}

func TestCreateRefusesWhenFull(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1000, 0)}
	f := &countingFactory{}
	m := NewManager(f, Options{MaxSessions: 1, TTL: time.Hour, Now: clk.now})
	first, d, _ := m.Create(ctx)
	_ = d.AddTransaction(ctx, sampleTx(1))

	if _, _, err := m.Create(ctx); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if _, ok := m.Get(first); !ok {
		t.Fatalf("live session must survive a refused start")
	}
	if txs, err := f.stores[0].List(ctx); err != nil || len(txs) != 1 {
		t.Fatalf("live store touched: %v %v", txs, err)
	}

	clk.t = clk.t.Add(2 * time.Hour)
	if _, _, err := m.Create(ctx); err != nil {
		t.Fatalf("expired session should free its slot: %v", err)
	}
	if _, err := f.stores[0].List(ctx); !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("expired store should be closed, got %v", err)
	}
}

func TestExpiryAndEnd(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1000, 0)}
	f := &countingFactory{}
	m := NewManager(f, Options{TTL: time.Hour, Now: clk.now})
	a, _, _ := m.Create(ctx)
	_, _, _ = m.Create(ctx)

	clk.t = clk.t.Add(2 * time.Hour)
	if n := m.Cleaner().CleanExpired(); n != 2 {
		t.Fatalf("expected 2 expired, got %d", n)
	}
	if _, ok := m.Get(a); ok {
		t.Fatalf("expired session still live")
	}

	c, _, _ := m.Create(ctx)
	if !m.End(c) || m.End(c) {
		t.Fatalf("End should report presence once")
	}
	if _, err := f.stores[2].List(ctx); !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("ended store should be closed")
	}
}

func TestCreateFactoryError(t *testing.T) {
	m := NewManager(&countingFactory{err: errors.New("boom")}, Options{})
	if _, _, _, err := m.Obtain(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestIDsUniqueAcrossSessions(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1000, 0)}
	m := NewManager(&countingFactory{}, Options{Now: clk.now})
	_, a, _ := m.Create(ctx)
	_, b, _ := m.Create(ctx)
	a.Form().SetDescription("a")
	a.Form().SetAmount("1")
	b.Form().SetDescription("b")
	b.Form().SetAmount("1")
	ta, err := a.SubmitForm(ctx)
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}
	tb, err := b.SubmitForm(ctx)
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}
	if ta.ID == tb.ID {
		t.Fatalf("ids collided across sessions: %d", ta.ID)
	}
}

func TestMiddlewareSetsCookieOnce(t *testing.T) {
	m := NewManager(&countingFactory{}, Options{})
	var seen []string
	h := Middleware(m, MiddlewareConfig{CookieName: "sid"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := FromContext(r.Context())
		if d == nil {
			t.Fatal("dashboard missing from context")
		}
		seen = append(seen, d.SessionID())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookies %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("existing session should not reissue the cookie")
	}
	if len(seen) != 2 || seen[0] != seen[1] || seen[0] != cookies[0].Value {
		t.Fatalf("expected the same session twice, got %v", seen)
	}
}

type denyAfter struct{ left int }

func (l *denyAfter) Allow(string) bool {
	l.left--
	return l.left >= 0
}

func TestMiddlewareReadsDoNotStartSessions(t *testing.T) {
	m := NewManager(&countingFactory{}, Options{MaxSessions: 1})
	h := Middleware(m, MiddlewareConfig{CookieName: "sid"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			t.Fatal("dashboard missing from context")
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	victim := rec.Result().Cookies()
	if len(victim) != 1 {
		t.Fatalf("page load should start a session")
	}

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/kpis", nil))
		if rec.Code != http.StatusOK || len(rec.Result().Cookies()) != 0 {
			t.Fatalf("partial read started a session: status=%d", rec.Code)
		}
	}
	if m.Count() != 1 {
		t.Fatalf("expected only the page session, got %d", m.Count())
	}
	if _, ok := m.Get(victim[0].Value); !ok {
		t.Fatalf("existing session was evicted")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("full manager should refuse new sessions, got %d", rec.Code)
	}
}

func TestMiddlewareThrottlesSessionStarts(t *testing.T) {
	m := NewManager(&countingFactory{}, Options{})
	h := Middleware(m, MiddlewareConfig{CookieName: "sid", Limiter: &denyAfter{left: 2}})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %v", codes)
	}
	if m.Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Count())
	}
}
