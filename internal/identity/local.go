package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/civiclens/webclient/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// LocalProvider is an in-memory identity provider for development and
// tests. Access tokens are HS256 JWTs carrying the user metadata.
type LocalProvider struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time

	mu       sync.Mutex
	users    map[string]*localUser
	byID     map[string]*localUser
	refresh  map[string]string
	sessions map[string]string
}

type localUser struct {
	id           string
	email        string
	passwordHash []byte
	metadata     map[string]any
}

// accessClaims are the claims carried by local access tokens.
type accessClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	SessionID    string         `json:"session_id"`
	jwt.RegisteredClaims
}

// NewLocalProvider constructs a local provider signing with secret.
func NewLocalProvider(secret string, tokenTTL time.Duration) (*LocalProvider, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required for the local identity provider")
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &LocalProvider{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		users:    make(map[string]*localUser),
		byID:     make(map[string]*localUser),
		refresh:  make(map[string]string),
		sessions: make(map[string]string),
	}, nil
}

func (p *LocalProvider) SignIn(_ context.Context, email, password string) (types.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return types.Session{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "missing email or password"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[email]
	if !ok {
		return types.Session{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return types.Session{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return p.openSession(user)
}

func (p *LocalProvider) SignUp(_ context.Context, email, password string, meta SignUpMetadata) (*types.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &AuthError{StatusCode: http.StatusBadRequest, Message: "email is required"}
	}
	if len(password) < 6 {
		return nil, &AuthError{StatusCode: http.StatusUnprocessableEntity, Message: "Password should be at least 6 characters."}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.users[email]; exists {
		return nil, &AuthError{StatusCode: http.StatusUnprocessableEntity, Message: "User already registered"}
	}
	user := &localUser{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: hashed,
		metadata:     map[string]any{"name": meta.Name, "role": meta.Role},
	}
	p.users[email] = user
	p.byID[user.id] = user

	session, err := p.openSession(user)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (p *LocalProvider) SignOut(_ context.Context, accessToken string) error {
	claims, err := p.parse(accessToken)
	if err != nil {
		return &AuthError{StatusCode: http.StatusUnauthorized, Message: "invalid token"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for token, sessionID := range p.sessions {
		if sessionID == claims.SessionID {
			delete(p.refresh, token)
			delete(p.sessions, token)
		}
	}
	return nil
}

func (p *LocalProvider) Refresh(_ context.Context, refreshToken string) (types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.refresh[refreshToken]
	if !ok {
		return types.Session{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Invalid Refresh Token"}
	}
	delete(p.refresh, refreshToken)
	delete(p.sessions, refreshToken)

	user, ok := p.byID[userID]
	if !ok {
		return types.Session{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "User not found"}
	}
	return p.openSession(user)
}

// Verify parses a local access token and returns its subject.
func (p *LocalProvider) Verify(accessToken string) (string, error) {
	claims, err := p.parse(accessToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// openSession must be called with p.mu held.
func (p *LocalProvider) openSession(user *localUser) (types.Session, error) {
	now := p.now()
	expiresAt := now.Add(p.tokenTTL)
	sessionID := uuid.NewString()

	metadata := make(map[string]any, len(user.metadata))
	for k, v := range user.metadata {
		metadata[k] = v
	}

	claims := accessClaims{
		Email:        user.email,
		UserMetadata: metadata,
		SessionID:    sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return types.Session{}, err
	}

	refreshToken := uuid.NewString()
	p.refresh[refreshToken] = user.id
	p.sessions[refreshToken] = sessionID

	return types.Session{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(p.tokenTTL.Seconds()),
		ExpiresAt:    expiresAt.Unix(),
		User: types.SessionUser{
			ID:           user.id,
			Email:        user.email,
			UserMetadata: metadata,
		},
	}, nil
}

func (p *LocalProvider) parse(tokenString string) (*accessClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}
