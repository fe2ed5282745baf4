// Package http serves the dashboard: the full page, its htmx partials, the
// form endpoints, exports and the operational endpoints.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"keuangan/internal/ledger"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/middleware/security"
	"keuangan/internal/middleware/trace"
	"keuangan/internal/session"
	appweb "keuangan/web"
)

// Options wires a Server. Sessions is required; everything else has a default.
type Options struct {
	Addr          string
	Sessions      *session.Manager
	Exporter      ledger.Exporter // nil disables the sheets export
	SessionCookie string
	MaxPhotoBytes int64
	Detector      *security.Detector
	Limiter       *ratelimit.Limiter
	// SessionLimiter throttles session starts per client.
	SessionLimiter *ratelimit.Limiter
	// ReadyCheck is called by /readyz in addition to the template check.
	ReadyCheck func(context.Context) error
	Logger     *log.Logger
	Now        func() time.Time
}

type Server struct {
	http.Server
	templates  *template.Template
	sessions   *session.Manager
	exporter   ledger.Exporter
	cookie     string
	maxPhoto   int64
	detector   *security.Detector
	limiter    *ratelimit.Limiter
	starts     *ratelimit.Limiter
	tracer     *trace.Middleware
	readyCheck func(context.Context) error
	logger     *log.Logger
	now        func() time.Time

	started   time.Time
	txCreated atomic.Int64
	exports   atomic.Int64
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("http server: session manager is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "keuangan_session"
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = 5 << 20
	}
	if opts.Detector == nil {
		d, err := security.NewDetector(nil, opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Detector = d
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if opts.SessionLimiter == nil {
		opts.SessionLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10})
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:  t,
		sessions:   opts.Sessions,
		exporter:   opts.Exporter,
		cookie:     opts.SessionCookie,
		maxPhoto:   opts.MaxPhotoBytes,
		detector:   opts.Detector,
		limiter:    opts.Limiter,
		starts:     opts.SessionLimiter,
		tracer:     trace.NewMiddleware(opts.Detector.ExtractClientIP, opts.Logger),
		readyCheck: opts.ReadyCheck,
		logger:     opts.Logger.WithComponent(log.ComponentHTTP),
		now:        opts.Now,
		started:    opts.Now(),
	}
	s.Server = http.Server{
		Addr:           opts.Addr,
		Handler:        s.routes(),
		MaxHeaderBytes: 1 << 16,
	}
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"num": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
	}
	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(session.Middleware(s.sessions, session.MiddlewareConfig{
			CookieName: s.cookie,
			Limiter:    s.starts,
			ClientIP:   s.detector.ExtractClientIP,
		}))

		r.Get("/", s.handleIndex)

		r.Route("/ui", func(r chi.Router) {
			r.Get("/kpis", s.handleKPIs)
			r.Get("/chart", s.handleChart)
			r.Get("/transactions", s.handleTransactions)

			r.Get("/form", s.handleForm)
			r.Post("/form/type", s.handleSelectType)
			r.Post("/form/fields", s.handleSyncFields)
			r.Post("/form/photo", s.handleAttachPhoto)
			r.Post("/form/photo/remove", s.handleRemovePhoto)

			r.Get("/photo", s.handlePhotoModal)
			r.Post("/photo/close", s.handleClosePhoto)
			r.Post("/photo/{id}", s.handleOpenPhoto)
		})

		r.Post("/transactions", s.handleSubmit)
		r.Get("/export.csv", s.handleExportCSV)
		r.Post("/export/sheets", s.handleExportSheets)
		r.Post("/session/reset", s.handleResetSession)
	})
	return r
}

// render writes a template with status, logging and answering 500 when the
// template fails.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any, b *HTMXResponseBuilder) {
	if b == nil {
		b = NewHTMXResponse()
	}
	if err := b.Template(s.templates, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "template execution failed",
			"template", name, log.FieldOperation, log.OpRender, log.FieldError, err.Error())
		InternalServerError("Something went wrong rendering this view.").Write(w)
		return
	}
	b.Status(status).Write(w)
}

// Templates exposes the parsed templates for readiness checks.
func (s *Server) Templates() *template.Template {
	return s.templates
}
