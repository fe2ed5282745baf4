package http

import (
	"html/template"
	"strings"
	"time"

	"keuangan/internal/chart"
	"keuangan/internal/core"
	"keuangan/internal/form"
	"keuangan/internal/services"
)

type kpiView struct {
	Income   string
	Expense  string
	Balance  string
	Positive bool
}

func newKPIView(t core.Totals) kpiView {
	return kpiView{
		Income:   core.FormatMillions(t.Income),
		Expense:  core.FormatMillions(t.Expense),
		Balance:  core.FormatMillions(t.Balance),
		Positive: t.Positive(),
	}
}

type txRow struct {
	ID          int64
	Date        string
	Description string
	Category    string
	Type        string
	Amount      string
	Income      bool
	HasPhoto    bool
}

func newTxRows(txs []core.Transaction) []txRow {
	rows := make([]txRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, txRow{
			ID:          tx.ID,
			Date:        tx.Date,
			Description: tx.Description,
			Category:    tx.Category.Label(),
			Type:        tx.Type.Label(),
			Amount:      core.FormatSignedMillions(tx.Type, tx.Amount),
			Income:      tx.Type == core.Income,
			HasPhoto:    tx.HasPhoto(),
		})
	}
	return rows
}

type formView struct {
	Draft         form.Draft
	Types         []core.Type
	AmountPreview string
	Preview       template.URL
	Error         string
	ErrorField    string
	MaxPhoto      string
}

func (s *Server) newFormView(d form.Draft, verr *form.ValidationError) formView {
	v := formView{
		Draft:    d,
		Types:    core.Types(),
		MaxPhoto: humanBytes(s.maxPhoto),
	}
	if d.HasPhoto() {
		v.Preview = photoURL(d.PhotoPreview)
	}
	if d.Amount.Valid && d.Amount.Decimal.IsPositive() {
		v.AmountPreview = core.FormatMillions(d.Amount.Decimal)
	}
	if verr != nil {
		v.Error = verr.Message()
		v.ErrorField = verr.Field
	}
	return v
}

type modalView struct {
	Photo    *services.SelectedPhoto
	Src      template.URL
	CloseURL string
}

func newModalView(sel *services.SelectedPhoto) modalView {
	v := modalView{Photo: sel, CloseURL: "/ui/photo/close"}
	if sel != nil {
		v.Src = photoURL(sel.Photo)
	}
	return v
}

// photoURL marks a stored photo as a trusted URL. Photos only ever come from
// form.EncodeDataURL, which emits sniffed image/* base64 data URLs.
func photoURL(dataURL string) template.URL {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return ""
	}
	return template.URL(dataURL)
}

type pageData struct {
	Today         string
	Clock         string
	KPIs          kpiView
	Chart         chart.Chart
	Rows          []txRow
	Form          formView
	Modal         modalView
	SheetsEnabled bool
}

func (s *Server) newPageData(snap services.Snapshot, d form.Draft, now time.Time) pageData {
	return pageData{
		Today:         now.Format("Monday, January 2, 2006"),
		Clock:         now.Format("15:04"),
		KPIs:          newKPIView(snap.Totals),
		Chart:         chart.Build(snap.ChartRows, chart.DefaultOptions()),
		Rows:          newTxRows(snap.Transactions),
		Form:          s.newFormView(d, nil),
		Modal:         newModalView(snap.Selected),
		SheetsEnabled: s.exporter != nil,
	}
}
