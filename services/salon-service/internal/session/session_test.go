package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
)

type roles map[string]model.Role

func (r roles) RoleFor(_ context.Context, userID string) (model.Role, error) {
	role, ok := r[userID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return role, nil
}

type clients map[string]string

func (c clients) GetByUserID(_ context.Context, userID string) (model.Client, error) {
	id, ok := c[userID]
	if !ok {
		return model.Client{}, pgx.ErrNoRows
	}
	return model.Client{ID: id}, nil
}

func newResolver(t *testing.T) (Resolver, *auth.Signer) {
	t.Helper()
	signer, err := auth.NewSigner("0123456789abcdef-secret", "salon", time.Hour)
	require.NoError(t, err)
	return Resolver{
		Tokens:  signer,
		Roles:   roles{"u-admin": model.RoleAdmin, "u-client": model.RoleClient},
		Clients: clients{"u-client": "client-7"},
	}, signer
}

func capture(got *Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAnonymousWithoutHeader(t *testing.T) {
	res, _ := newResolver(t)
	var got Session

	rec := httptest.NewRecorder()
	res.Middleware(capture(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusAnonymous, got.Status)
}

func TestMiddlewareResolvesRoleFromStorage(t *testing.T) {
	res, signer := newResolver(t)
	token, err := signer.Issue("u-client", "c@example.com", "admin")
	require.NoError(t, err)
	var got Session

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	res.Middleware(capture(&got)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusAuthenticated, got.Status)
	assert.Equal(t, model.RoleClient, got.Role)
	assert.Equal(t, "client-7", got.ClientID)
	assert.Equal(t, "c@example.com", got.Email)
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	res, signer := newResolver(t)
	noRole, err := signer.Issue("u-unknown", "x@example.com", "")
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		code   int
	}{
		"garbage":    {"Bearer nope", http.StatusUnauthorized},
		"not bearer": {"Basic abc", http.StatusUnauthorized},
		"no role":    {"Bearer " + noRole, http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			res.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	res, signer := newResolver(t)
	token, err := signer.Issue("u-admin", "a@example.com", "")
	require.NoError(t, err)
	var got Session

	rec := httptest.NewRecorder()
	res.Middleware(capture(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/live?access_token="+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleAdmin, got.Role)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleAdmin, model.RoleStaff)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(s Session) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSession(req.Context(), s))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(Session{Status: StatusAnonymous}))
	assert.Equal(t, http.StatusUnauthorized, serve(Session{Status: StatusLoading, Role: model.RoleAdmin}))
	assert.Equal(t, http.StatusForbidden, serve(Session{Status: StatusAuthenticated, Role: model.RoleClient}))
	assert.Equal(t, http.StatusOK, serve(Session{Status: StatusAuthenticated, Role: model.RoleStaff}))
}

func TestLoadPropagatesStorageErrors(t *testing.T) {
	res, signer := newResolver(t)
	res.Roles = failingRoles{}
	token, err := signer.Issue("u-admin", "", "")
	require.NoError(t, err)

	s, err := res.Load(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, StatusLoading, s.Status)
}

type failingRoles struct{}

func (failingRoles) RoleFor(context.Context, string) (model.Role, error) {
	return "", errors.New("db down")
}
