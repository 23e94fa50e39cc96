package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
)

type Status string

const (
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Session is the caller's identity for one request.
type Session struct {
	Status   Status     `json:"status"`
	UserID   string     `json:"user_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	Role     model.Role `json:"role,omitempty"`
	ClientID string     `json:"client_id,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns an anonymous session when none was attached.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Session{Status: StatusAnonymous}
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type RoleSource interface {
	RoleFor(ctx context.Context, userID string) (model.Role, error)
}

type ClientSource interface {
	GetByUserID(ctx context.Context, userID string) (model.Client, error)
}

type Resolver struct {
	Tokens  TokenVerifier
	Roles   RoleSource
	Clients ClientSource
	Logger  *slog.Logger
}

// Load builds the session for a bearer token. The role always comes from
// storage, never from the token claims.
func (res Resolver) Load(ctx context.Context, token string) (Session, error) {
	claims, err := res.Tokens.Verify(token)
	if err != nil {
		return Session{}, err
	}
	s := Session{Status: StatusLoading, UserID: claims.Subject, Email: claims.Email}

	role, err := res.Roles.RoleFor(ctx, s.UserID)
	if err != nil {
		return s, err
	}
	s.Role = role
	if role == model.RoleClient && res.Clients != nil {
		c, err := res.Clients.GetByUserID(ctx, s.UserID)
		if err != nil && !storage.IsNotFound(err) {
			return s, err
		}
		s.ClientID = c.ID
	}
	s.Status = StatusAuthenticated
	return s, nil
}

// Middleware attaches a session to every request. No Authorization header
// yields an anonymous session; a bad token is rejected with 401.
func (res Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present, ok := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), Session{Status: StatusAnonymous})))
			return
		}
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		s, err := res.Load(r.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrInvalidToken):
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		case storage.IsNotFound(err):
			http.Error(w, "no role assigned", http.StatusForbidden)
			return
		default:
			if res.Logger != nil {
				res.Logger.Error("session load failed", "user_id", s.UserID, "err", err)
			}
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// bearerToken also accepts an access_token query parameter, which browsers
// need for WebSocket upgrades.
func bearerToken(r *http.Request) (token string, present bool, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if q := strings.TrimSpace(r.URL.Query().Get("access_token")); q != "" {
			return q, true, true
		}
		return "", false, false
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", true, false
	}
	token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, true, token != ""
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := map[model.Role]struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			if !s.Authenticated() {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[s.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
