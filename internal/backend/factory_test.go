package backend

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"keuangan/internal/config"
	"keuangan/internal/core"
	"keuangan/internal/ledger"
	"keuangan/internal/ledger/memory"
	memsheet "keuangan/internal/sheets/memory"
	"keuangan/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{LedgerBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{LedgerBackend: "sqlite", AMQPExchange: "x", AMQPQueue: "q"})
	if err != nil || cfg.Type != SQLiteBackend {
		t.Fatalf("unexpected %+v %v", cfg, err)
	}
}

func TestNewStorePerBackend(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		typ  BackendType
		want func(ledger.Store) bool
	}{
		{MemoryBackend, func(s ledger.Store) bool { _, ok := s.(*memory.Store); return ok }},
		{SQLiteBackend, func(s ledger.Store) bool { _, ok := s.(*storage.SQLiteRepository); return ok }},
	}
	for _, tc := range cases {
		f, err := NewFactory(Config{Type: tc.typ}, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.typ, err)
		}
		a, err := f.NewStore(ctx)
		if err != nil {
			t.Fatalf("%s: new store: %v", tc.typ, err)
		}
		b, _ := f.NewStore(ctx)
		if !tc.want(a) {
			t.Fatalf("%s: unexpected store type %T", tc.typ, a)
		}

		tx := core.Transaction{ID: 1, Description: "x", Amount: decimal.NewFromInt(1), Type: core.Income, Category: "salary"}
		if err := a.Append(ctx, tx); err != nil {
			t.Fatalf("%s: append: %v", tc.typ, err)
		}
		if list, _ := b.List(ctx); len(list) != 0 {
			t.Fatalf("%s: stores must not share data", tc.typ)
		}
		a.Close()
		b.Close()
	}
}

func TestIntegrationsDisabledByDefault(t *testing.T) {
	f, _ := NewFactory(Config{Type: MemoryBackend}, nil)
	in, err := f.Integrations(context.Background())
	if err != nil {
		t.Fatalf("integrations: %v", err)
	}
	if in.Publisher != nil || in.Exporter != nil {
		t.Fatalf("nothing should be enabled: %+v", in)
	}
	if err := in.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestIntegrationsSheetsMisconfigured(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	f, _ := NewFactory(Config{Type: MemoryBackend, GoogleSpreadsheetID: "id"}, nil)
	if _, err := f.Integrations(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestIntegrationsMemorySheet(t *testing.T) {
	f, err := NewFactory(Config{Type: MemoryBackend, SheetsTarget: "memory", GoogleSheetName: "Budget"}, nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	in, err := f.Integrations(context.Background())
	if err != nil {
		t.Fatalf("integrations: %v", err)
	}
	if _, ok := in.Exporter.(*memsheet.Sheet); !ok {
		t.Fatalf("expected in-memory sheet, got %T", in.Exporter)
	}
}

func TestNewFactoryRejectsInvalid(t *testing.T) {
	if _, err := NewFactory(Config{Type: "nope"}, nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewFactory(Config{Type: MemoryBackend, SheetsTarget: "excel"}, nil); err == nil {
		t.Fatal("expected error for unknown sheets target")
	}
}

func TestPingKeepsOneDatabase(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		typ    BackendType
		wantDB bool
	}{
		{MemoryBackend, false},
		{SQLiteBackend, true},
	}
	for _, tc := range cases {
		f, err := NewFactory(Config{Type: tc.typ}, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.typ, err)
		}
		for i := 0; i < 3; i++ {
			if err := f.Ping(ctx); err != nil {
				t.Fatalf("%s: ping %d: %v", tc.typ, i, err)
			}
		}
		first := f.readiness
		if (first != nil) != tc.wantDB {
			t.Fatalf("%s: readiness database opened=%v", tc.typ, first != nil)
		}
		if err := f.Ping(ctx); err != nil || f.readiness != first {
			t.Fatalf("%s: ping must reuse the same database (%v)", tc.typ, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("%s: close: %v", tc.typ, err)
		}
		if f.readiness != nil {
			t.Fatalf("%s: close kept the database", tc.typ)
		}
	}
}
