package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"keuangan/internal/core"
)

func TestNewRequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Options{}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "id"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}

	_, err = New(context.Background(), Options{SpreadsheetID: "id", CredentialsFile: "/does/not/exist.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file error, got %v", err)
	}
}

func TestExportAppendsRows(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Transactions!A2:F3","updatedRows":2}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-1",
		ClientOptions: []goption.ClientOption{
			goption.WithHTTPClient(srv.Client()),
			goption.WithEndpoint(srv.URL + "/"),
		},
	}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	txs := []core.Transaction{
		{ID: 1, Description: "Salary", Amount: decimal.NewFromInt(5000000), Type: core.Income, Category: "salary", Date: "3/1/2025"},
		{ID: 2, Description: `=HYPERLINK("http://x.test","Lunch")`, Amount: decimal.NewFromInt(45000), Type: core.Expense, Category: "food", Date: "3/2/2025", Photo: "data:image/png;base64,AA"},
	}
	ref, err := c.Export(context.Background(), txs)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref != "Transactions!A2:F3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-1/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=RAW") {
		t.Fatalf("descriptions must be stored literally, query %q", gotQuery)
	}
	if len(gotBody.Values) != 2 || gotBody.Values[1][1] != `=HYPERLINK("http://x.test","Lunch")` ||
		gotBody.Values[1][4] != float64(45000) || gotBody.Values[1][5] != true {
		t.Fatalf("unexpected body %+v", gotBody.Values)
	}
}

func TestExportEdgeCases(t *testing.T) {
	if _, err := (&Client{}).Export(context.Background(), nil); err == nil {
		t.Fatal("expected error without a service")
	}

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()
	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-1",
		ClientOptions: []goption.ClientOption{goption.WithHTTPClient(srv.Client()), goption.WithEndpoint(srv.URL + "/")},
	}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ref, err := c.Export(context.Background(), nil); err != nil || ref != "" || calls != 0 {
		t.Fatalf("empty export should be a no-op: ref=%q err=%v calls=%d", ref, err, calls)
	}
}
