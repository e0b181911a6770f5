package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/catalog"
	"github.com/erazemk/pisarna/internal/imaging"
	"github.com/erazemk/pisarna/internal/model"
)

// ItemsHandler handles item catalog endpoints.
type ItemsHandler struct {
	Catalog *catalog.Service
}

type createItemRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
	Stock    int    `json:"stock" validate:"gte=0"`
	Unit     string `json:"unit"`
	Location string `json:"location"`
}

type updateItemRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Stock    *int    `json:"stock" validate:"omitempty,gte=0"`
	Unit     *string `json:"unit"`
	Location *string `json:"location"`
}

type deleteItemResponse struct {
	CancelledRequests int `json:"cancelled_requests"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.ListItems(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Catalog.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	item, err := h.Catalog.AddItem(r.Context(), claims.UserID, model.Item{
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		Stock:    req.Stock,
		Unit:     req.Unit,
		Location: req.Location,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "code", item.Code, "by", claims.Email)
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	item, err := h.Catalog.UpdateItem(r.Context(), claims.UserID, id, model.ItemPatch{
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		Stock:    req.Stock,
		Unit:     req.Unit,
		Location: req.Location,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item updated", "code", item.Code, "by", claims.Email)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	cancelled, err := h.Catalog.DeleteItem(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "id", id, "cancelled_requests", cancelled, "by", claims.Email)
	jsonResponse(w, http.StatusOK, deleteItemResponse{CancelledRequests: cancelled})
}

// UploadImage handles PUT /api/items/{id}/image. The form field is "image".
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(64<<10))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		writeError(w, r, apperr.Wrap(apperr.CodeValidation, err, "file too large or invalid multipart form"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, apperr.Validation("image file required").With("field", "image"))
		return
	}
	defer file.Close()

	claims := GetClaims(r.Context())
	photo, err := h.Catalog.SetPhoto(r.Context(), claims.UserID, id, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item photo uploaded", "id", id, "bytes", len(photo.Data), "by", claims.Email)
	jsonResponse(w, http.StatusOK, map[string]int{"width": photo.Width, "height": photo.Height})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, mime, err := h.Catalog.Photo(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

// Stats handles GET /api/stats.
func (h *ItemsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Catalog.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
