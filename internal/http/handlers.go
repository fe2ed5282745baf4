package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"keuangan/internal/chart"
	"keuangan/internal/export"
	"keuangan/internal/form"
	"keuangan/internal/ledger"
	"keuangan/internal/log"
	"keuangan/internal/services"
	"keuangan/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether pages can be rendered and new sessions started.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil || s.templates.Lookup("index") == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.readyCheck != nil {
		if err := s.readyCheck(ctx); err != nil {
			checks["ledger"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["ledger"] = "ok"
		}
	}

	checks["sessions"] = map[string]any{"active": s.sessions.Count(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "status": "ok"}
	checks["sheets_export"] = s.exporter != nil

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	tm := s.tracer.GetMetrics()
	sm := s.detector.GetMetrics()
	rm := s.limiter.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", tm.TotalRequests)
	metric("http_client_errors_total", "Responses with a 4xx status", "counter", tm.ClientErrors)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", tm.ServerErrors)
	metric("transactions_created_total", "Transactions added across all sessions", "counter", s.txCreated.Load())
	metric("exports_total", "Completed CSV and sheets exports", "counter", s.exports.Load())
	metric("sessions_active", "Live dashboard sessions", "gauge", s.sessions.Count())
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rm.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rm.ClientCount)
	metric("session_starts_throttled_total", "Session starts rejected by the per-client limit", "counter", s.starts.GetMetrics().TotalHits)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", sm.SuspiciousRequests)
	metric("invalid_forwarded_ip_total", "Forwarding headers with an unparsable address", "counter", sm.InvalidIPAttempts)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(s.now().Sub(s.started).Seconds()))
}

// dashboard returns the session dashboard attached by the session middleware.
func dashboard(r *http.Request) *services.Dashboard {
	return session.FromContext(r.Context())
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (services.Snapshot, bool) {
	snap, err := dashboard(r).Snapshot(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "failed to read transactions",
			log.FieldOperation, log.OpList, log.FieldError, err.Error())
		InternalServerError("Could not load your transactions.").Write(w)
		return services.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	data := s.newPageData(snap, dashboard(r).Form().Draft(), s.now())
	s.render(w, r, http.StatusOK, "index", data, nil)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "kpis", newKPIView(snap.Totals), nil)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "chart", chart.Build(snap.ChartRows, chart.DefaultOptions()), nil)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "transactions", newTxRows(snap.Transactions), nil)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, http.StatusOK, nil, nil)
}

// renderForm re-renders the form from the current draft. A validation error
// is shown inline and raised as a notification.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, verr *form.ValidationError, b *HTMXResponseBuilder) {
	if b == nil {
		b = NewHTMXResponse()
	}
	if verr != nil {
		b.TriggerErrorNotification(verr.Message())
	}
	s.render(w, r, status, "form", s.newFormView(dashboard(r).Form().Draft(), verr), b)
}

// handleSelectType selects income or expense and resets the category, also
// when the type was already selected. The category posted with it belongs
// to the old selection and is ignored.
func (s *Server) handleSelectType(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	fields := ParseDraftFields(r.PostForm)
	fields.Category = nil
	if err := fields.Apply(dashboard(r).Form()); err != nil {
		var verr *form.ValidationError
		errors.As(err, &verr)
		s.renderForm(w, r, http.StatusUnprocessableEntity, verr, nil)
		return
	}
	s.renderForm(w, r, http.StatusOK, nil, nil)
}

// handleSyncFields stores field edits as they happen. The page does not
// swap anything for this call, so success is an empty 204.
func (s *Server) handleSyncFields(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	fields := ParseDraftFields(r.PostForm)
	fields.Type = nil
	if err := fields.Apply(dashboard(r).Form()); err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			UnprocessableEntityError(verr.Message()).Write(w)
			return
		}
		BadRequestError("Invalid form data").Write(w)
		return
	}
	NewHTMXResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAttachPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentForm)
	f := dashboard(r).Form()

	// Room for the multipart envelope and the synced text fields.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxPhoto+64<<10)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		status, msg := photoError(err, s.maxPhoto)
		s.renderForm(w, r, status, nil, NewHTMXResponse().TriggerErrorNotification(msg))
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields := ParseDraftFields(r.PostForm)
	fields.Type = nil
	if err := fields.Apply(f); err != nil {
		var verr *form.ValidationError
		errors.As(err, &verr)
		s.renderForm(w, r, http.StatusUnprocessableEntity, verr, nil)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		status, msg := photoError(err, s.maxPhoto)
		s.renderForm(w, r, status, nil, NewHTMXResponse().TriggerErrorNotification(msg))
		return
	}
	defer file.Close()

	err = f.AttachPhoto(ctx, file)
	switch {
	case err == nil:
		logger.DebugContext(ctx, "photo attached", log.FieldOperation, log.OpDecode)
		s.renderForm(w, r, http.StatusOK, nil, nil)
	case errors.Is(err, form.ErrSuperseded):
		// A newer selection owns the preview; show whatever it holds now.
		s.renderForm(w, r, http.StatusOK, nil, nil)
	default:
		logger.WarnContext(ctx, "photo rejected", log.FieldOperation, log.OpDecode, log.FieldError, err.Error())
		status, msg := photoError(err, s.maxPhoto)
		s.renderForm(w, r, status, nil, NewHTMXResponse().TriggerErrorNotification(msg))
	}
}

func (s *Server) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	dashboard(r).Form().RemovePhoto()
	s.renderForm(w, r, http.StatusOK, nil, nil)
}

// handleSubmit applies the posted fields and submits the draft. On success
// the other panels are told to refresh and a fresh form is returned.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := dashboard(r)
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	fields := ParseDraftFields(r.PostForm)
	fields.Type = nil
	var verr *form.ValidationError
	if err := fields.Apply(d.Form()); err != nil {
		errors.As(err, &verr)
		s.renderForm(w, r, http.StatusUnprocessableEntity, verr, nil)
		return
	}

	tx, err := d.SubmitForm(ctx)
	if errors.As(err, &verr) {
		log.FromContext(ctx).DebugContext(ctx, "submission rejected",
			log.FieldOperation, log.OpSubmit, "field", verr.Field, log.FieldError, verr.Error())
		s.renderForm(w, r, http.StatusUnprocessableEntity, verr, nil)
		return
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "failed to add transaction",
			log.FieldOperation, log.OpSubmit, log.FieldError, err.Error())
		s.renderForm(w, r, http.StatusInternalServerError, nil,
			NewHTMXResponse().TriggerErrorNotification("Could not save the transaction. Please try again."))
		return
	}

	s.txCreated.Add(1)
	b := NewHTMXResponse().
		TriggerTransactionCreated(tx.ID).
		TriggerFormReset().
		TriggerSuccessNotification(tx.Type.Label() + " added")
	s.renderForm(w, r, http.StatusOK, nil, b)
}

func (s *Server) handlePhotoModal(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "photo_modal", newModalView(dashboard(r).Selected()), nil)
}

func (s *Server) handleOpenPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := dashboard(r)
	id, err := ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		BadRequestError("Invalid transaction").Write(w)
		return
	}
	if err := d.SelectPhoto(ctx, id); err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			NotFoundError("Transaction not found").Write(w)
		case errors.Is(err, services.ErrNoPhoto):
			UnprocessableEntityError("This transaction has no photo").Write(w)
		default:
			log.FromContext(ctx).ErrorContext(ctx, "failed to open photo",
				log.FieldOperation, log.OpSelect, log.FieldTxID, id, log.FieldError, err.Error())
			InternalServerError("Could not open the photo").Write(w)
		}
		return
	}
	s.render(w, r, http.StatusOK, "photo_modal", newModalView(d.Selected()),
		NewHTMXResponse().TriggerPhotoSelected(id))
}

func (s *Server) handleClosePhoto(w http.ResponseWriter, r *http.Request) {
	d := dashboard(r)
	d.ClearPhoto()
	s.render(w, r, http.StatusOK, "photo_modal", newModalView(nil), nil)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := dashboard(r).Transactions(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "failed to read transactions for export",
			log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		InternalServerError("Could not export your transactions.").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now().Format("2006-01-02"))+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, txs); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentExport).ErrorContext(ctx, "csv export interrupted",
			log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		return
	}
	s.exports.Add(1)
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.exporter == nil {
		ServiceUnavailableError("Google Sheets export is not configured.").Write(w)
		return
	}
	txs, err := dashboard(r).Transactions(ctx)
	if err != nil {
		InternalServerError("Could not export your transactions.").Write(w)
		return
	}
	if len(txs) == 0 {
		NewHTMXResponse().
			TriggerNotification(NotificationInfo, "Nothing to export yet.", 3000).
			Status(http.StatusNoContent).
			Write(w)
		return
	}

	ref, err := s.exporter.Export(ctx, txs)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentSheets).ErrorContext(ctx, "sheets export failed",
			log.FieldOperation, log.OpExport, log.FieldCount, len(txs), log.FieldError, err.Error())
		BadGatewayError("Google Sheets export failed.").Write(w)
		return
	}
	s.exports.Add(1)
	msg := fmt.Sprintf("Exported %d transaction(s) to Google Sheets", len(txs))
	NewHTMXResponse().
		TriggerSuccessNotification(msg).
		Header("X-Sheets-Range", ref).
		Status(http.StatusNoContent).
		Write(w)
}

// handleResetSession discards the session and its transactions, like a
// page reload in a single-page version of the dashboard.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	d := dashboard(r)
	s.sessions.End(d.SessionID())
	session.ClearCookie(w, s.cookie)
	log.FromContext(r.Context()).WithComponent(log.ComponentSession).InfoContext(r.Context(), "session reset")

	if isHTMX(r) {
		NewHTMXResponse().Header("HX-Redirect", "/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
