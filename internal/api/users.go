package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/pisarna/internal/accounts"
	"github.com/erazemk/pisarna/internal/model"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	Accounts *accounts.Service
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin staff"`
	Password *string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	user, err := h.Accounts.Create(r.Context(), claims.UserID, accounts.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user created", "user", user.Email, "role", user.Role, "by", claims.Email)
	jsonResponse(w, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	user, err := h.Accounts.Update(r.Context(), claims.UserID, id, accounts.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user updated", "user", user.Email, "by", claims.Email)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	if err := h.Accounts.Delete(r.Context(), claims.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user deleted", "id", id, "by", claims.Email)
	w.WriteHeader(http.StatusNoContent)
}
