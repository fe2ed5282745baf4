package session

import (
	"context"
	"errors"
	"net/http"

	"keuangan/internal/log"
	"keuangan/internal/services"
)

type contextKey struct{}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	CookieName string
	// Limiter throttles session starts per client. Nil means unlimited.
	Limiter interface{ Allow(key string) bool }
	// ClientIP keys the limiter. Defaults to the request's RemoteAddr.
	ClientIP func(*http.Request) string
}

// startsSession reports whether r may create a session: the page itself or
// any form post. Other reads from clients without a session get an empty
// throwaway view so they cannot crowd out live sessions.
func startsSession(r *http.Request) bool {
	return r.Method == http.MethodPost || (r.Method == http.MethodGet && r.URL.Path == "/")
}

// Middleware resolves the session cookie to a dashboard, starting a new
// session when the request is allowed to, and stores the dashboard in the
// request context.
func Middleware(m *Manager, cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.ClientIP == nil {
		cfg.ClientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.FromContext(r.Context())
			var current string
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				current = c.Value
			}
			if d, ok := m.Get(current); ok {
				r = log.Enrich(r, log.FieldSessionID, current)
				next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), d)))
				return
			}

			if !startsSession(r) {
				d := m.Ephemeral()
				defer d.Close()
				next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), d)))
				return
			}

			if cfg.Limiter != nil {
				if ip := cfg.ClientIP(r); !cfg.Limiter.Allow(ip) {
					logger.WarnContext(r.Context(), "session start throttled", log.FieldClientIP, ip)
					w.Header().Set("Retry-After", "60")
					w.Header().Set("HX-Trigger", `{"show-notification":{"type":"error","message":"Too many new sessions, please slow down.","duration":5000}}`)
					http.Error(w, "Too many requests", http.StatusTooManyRequests)
					return
				}
			}

			id, d, created, err := m.Obtain(r.Context(), current)
			if errors.Is(err, ErrFull) {
				w.Header().Set("Retry-After", "300")
				http.Error(w, "Too many active sessions, please try again later", http.StatusServiceUnavailable)
				return
			}
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to start session", log.FieldError, err.Error())
				http.Error(w, "Session unavailable", http.StatusInternalServerError)
				return
			}
			if created {
				SetCookie(w, r, cfg.CookieName, id)
			}
			r = log.Enrich(r, log.FieldSessionID, id)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), d)))
		})
	}
}

// SetCookie writes the session cookie. It lives for the browser session.
func SetCookie(w http.ResponseWriter, r *http.Request, name, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func NewContext(ctx context.Context, d *services.Dashboard) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// FromContext returns the request's dashboard, or nil outside Middleware.
func FromContext(ctx context.Context) *services.Dashboard {
	d, _ := ctx.Value(contextKey{}).(*services.Dashboard)
	return d
}
