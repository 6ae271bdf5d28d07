package handlers

import (
	"net/http"
	"time"

	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/session"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieOptions configures the browser session cookie.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return "civiclens_sid"
	}
	return o.Name
}

func setSessionCookie(w http.ResponseWriter, opts CookieOptions, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.name(),
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionCookie makes sure every request carries a browser session id,
// issuing a new one when the cookie is missing or malformed.
func SessionCookie(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if cookie, err := r.Cookie(opts.name()); err == nil {
				if parsed, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = parsed.String()
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				setSessionCookie(w, opts, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(withSessionID(r.Context(), sessionID)))
		})
	}
}

// ResolveIdentity attaches the identity of the browser session, if any.
func ResolveIdentity(registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionIDFromContext(r.Context())
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, _ := registry.Resolver(r.Context(), sessionID).Identity()
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireRoles gates a group of routes with the route guard.
func RequireRoles(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFromContext(r.Context())
			decision := guard.Check(identity, roles, r.URL.RequestURI())
			if decision.Allow {
				next.ServeHTTP(w, r)
				return
			}
			if wantsJSON(r) {
				status := http.StatusForbidden
				if identity == nil {
					status = http.StatusUnauthorized
				}
				writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Redirect: decision.Redirect})
				return
			}
			http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
		})
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Recoverer turns a panic into the fallback screen.
func Recoverer(resp *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				resp.logger.Error("panic serving request",
					zap.Any("panic", rvr),
					zap.String("path", r.URL.Path),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Stack("stack"))
				resp.fallback(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
