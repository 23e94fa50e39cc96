package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type meResponse struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone,omitempty"`
	Role     model.Role `json:"role"`
	ClientID string     `json:"client_id,omitempty"`
}

type profileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
}

// Register creates a client account: login, role and the linked client row
// commit together.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	hash, err := hashPassword(req.Password)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	tx, err := h.Users.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := h.Users.CreateTx(ctx, tx, model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	if err := h.Users.SetRoleTx(ctx, tx, user.ID, model.RoleClient); err != nil {
		http.Error(w, "failed to assign role", http.StatusInternalServerError)
		return
	}
	if _, err := h.Clients.CreateTx(ctx, tx, model.Client{
		UserID: &user.ID,
		Name:   user.FullName,
		Email:  user.Email,
		Phone:  user.Phone,
	}); err != nil {
		http.Error(w, "failed to create client profile", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}

	resp, err := h.issueTokens(ctx, user, model.RoleClient)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}
	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	role, err := h.Users.RoleFor(r.Context(), user.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "no role assigned", http.StatusForbidden)
			return
		}
		h.fail(w, r, err, "failed to load role")
		return
	}

	resp, err := h.issueTokens(r.Context(), user, role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Refresh rotates the refresh token; the old one is revoked in the same transaction.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "refresh_token required", http.StatusBadRequest)
		return
	}

	next, err := newRefreshToken()
	if err != nil {
		http.Error(w, "failed to issue refresh token", http.StatusInternalServerError)
		return
	}
	userID, err := h.Tokens.Rotate(r.Context(), strings.TrimSpace(req.RefreshToken), next, time.Now().Add(h.RefreshTTL))
	if err != nil {
		if errors.Is(err, storage.ErrRefreshInvalid) {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to rotate refresh token", http.StatusInternalServerError)
		return
	}

	user, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}
	role, err := h.Users.RoleFor(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "failed to load role")
		return
	}
	access, err := h.Signer.Issue(user.ID, user.Email, string(role))
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: next, TokenType: "Bearer"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "refresh_token required", http.StatusBadRequest)
		return
	}
	if err := h.Tokens.Revoke(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		http.Error(w, "failed to revoke refresh token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	user, err := h.Users.GetByID(r.Context(), s.UserID)
	if err != nil {
		h.fail(w, r, err, "failed to lookup user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
		Role:     s.Role,
		ClientID: s.ClientID,
	})
}

// UpdateProfile changes the caller's name and phone and mirrors them into the
// client or staff row linked to the login.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := session.FromContext(r.Context())
	name := strings.TrimSpace(req.FullName)
	phone := strings.TrimSpace(req.Phone)

	ctx := r.Context()
	tx, err := h.Users.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.Users.UpdateProfileTx(ctx, tx, s.UserID, name, phone); err != nil {
		h.fail(w, r, err, "failed to update profile")
		return
	}
	switch s.Role {
	case model.RoleClient:
		_, err = h.Clients.UpdateContactTx(ctx, tx, s.UserID, name, phone)
	case model.RoleStaff, model.RoleAdmin:
		_, err = h.Staff.UpdateContactTx(ctx, tx, s.UserID, name, phone)
	}
	if err != nil {
		http.Error(w, "failed to update linked profile", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) issueTokens(ctx context.Context, user model.User, role model.Role) (tokenResponse, error) {
	access, err := h.Signer.Issue(user.ID, user.Email, string(role))
	if err != nil {
		return tokenResponse{}, errors.New("failed to issue token")
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return tokenResponse{}, errors.New("failed to issue refresh token")
	}
	if err := h.Tokens.Create(ctx, user.ID, refresh, time.Now().Add(h.RefreshTTL)); err != nil {
		return tokenResponse{}, errors.New("failed to issue refresh token")
	}
	return tokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
