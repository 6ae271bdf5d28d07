package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/identity"
	"github.com/civiclens/webclient/internal/session"
	"github.com/civiclens/webclient/internal/views"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const confirmEmailNotice = "Account created. Check your email to confirm your address, then sign in."

// LoginView is the view model of the login screen.
type LoginView struct {
	Next  string `json:"next,omitempty"`
	Email string `json:"email,omitempty"`
}

// SignupView is the view model of the signup screen.
type SignupView struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// AuthHandler signs browser sessions in and out.
type AuthHandler struct {
	sessions *session.Manager
	cookie   CookieOptions
	resp     *Responder
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(sessions *session.Manager, cookie CookieOptions, resp *Responder) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookie: cookie, resp: resp}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, sessions *session.Manager, cookie CookieOptions, resp *Responder) {
	handler := NewAuthHandler(sessions, cookie, resp)

	r.Get(guard.LoginPath, handler.LoginPage)
	r.Post(guard.LoginPath, handler.Login)
	r.Get(guard.SignupPath, handler.SignupPage)
	r.Post(guard.SignupPath, handler.Signup)
	r.Post("/logout", handler.Logout)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if user := identityFromContext(r.Context()); user != nil {
		redirect(w, r, guard.HomePath(user.Role))
		return
	}
	view := LoginView{Next: guard.SafeNext(r.URL.Query().Get("next"))}
	h.resp.render(w, r, http.StatusOK, views.Login, page(r, "Login", view))
}

// Login signs in with email and password and opens the role's home
// screen, or the remembered next screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.loginFailed(w, r, formStatus(err), LoginView{}, err.Error())
		return
	}

	view := LoginView{
		Next:  guard.SafeNext(r.PostFormValue("next")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")
	if view.Email == "" || password == "" {
		h.loginFailed(w, r, http.StatusBadRequest, view, "Email and password are required")
		return
	}

	result, err := h.sessions.Login(r.Context(), sessionIDFromContext(r.Context()), view.Email, password)
	if err != nil {
		h.authFailed(w, r, err, func(status int, message string) {
			h.loginFailed(w, r, status, view, message)
		})
		return
	}
	setSessionCookie(w, h.cookie, result.SessionID)

	target := guard.HomePath(result.Identity.Role)
	if view.Next != "" {
		target = view.Next
	}
	redirect(w, r, target)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, status int, view LoginView, message string) {
	p := page(r, "Login", view)
	p.Error = message
	h.resp.render(w, r, status, views.Login, p)
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	if user := identityFromContext(r.Context()); user != nil {
		redirect(w, r, guard.HomePath(user.Role))
		return
	}
	h.resp.render(w, r, http.StatusOK, views.Signup, page(r, "Sign Up", SignupView{Role: string(types.RoleCitizen)}))
}

// Signup creates an account. When the provider opens a session right
// away the role's home screen is shown; otherwise the login screen asks
// the user to confirm their email first.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.signupFailed(w, r, formStatus(err), SignupView{Role: string(types.RoleCitizen)}, err.Error())
		return
	}

	view := SignupView{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Role:  string(types.NormalizeRole(r.PostFormValue("role"))),
	}
	password := r.PostFormValue("password")
	if view.Name == "" || view.Email == "" || password == "" {
		h.signupFailed(w, r, http.StatusBadRequest, view, "Name, email and password are required")
		return
	}

	result, err := h.sessions.Signup(r.Context(), sessionIDFromContext(r.Context()), view.Email, password, view.Name, view.Role)
	if err != nil {
		h.authFailed(w, r, err, func(status int, message string) {
			h.signupFailed(w, r, status, view, message)
		})
		return
	}

	if !result.SessionOpened || result.Identity == nil {
		p := page(r, "Login", LoginView{Email: view.Email})
		p.Notice = confirmEmailNotice
		h.resp.render(w, r, http.StatusOK, views.Login, p)
		return
	}
	setSessionCookie(w, h.cookie, result.SessionID)
	redirect(w, r, guard.HomePath(result.Identity.Role))
}

func (h *AuthHandler) signupFailed(w http.ResponseWriter, r *http.Request, status int, view SignupView, message string) {
	p := page(r, "Sign Up", view)
	p.Error = message
	h.resp.render(w, r, status, views.Signup, p)
}

// authFailed shows provider rejections inline on the form. Other failures
// are logged and reported generically.
func (h *AuthHandler) authFailed(w http.ResponseWriter, r *http.Request, err error, show func(status int, message string)) {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		show(http.StatusUnauthorized, authErr.Error())
		return
	}
	h.resp.logger.Error("auth request failed", zap.String("path", r.URL.Path), zap.Error(err))
	show(http.StatusBadGateway, "Authentication service unavailable. Please try again.")
}

// Logout signs the session out and opens the login screen. A provider
// rejection is logged; the local session is gone either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), sessionIDFromContext(r.Context())); err != nil {
		h.resp.logger.Warn("logout failed", zap.Error(err))
	}
	redirect(w, r, guard.LoginPath)
}
