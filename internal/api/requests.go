package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/workflow"
)

// RequestsHandler handles supply request endpoints.
type RequestsHandler struct {
	Workflow *workflow.Service
}

type createRequestRequest struct {
	ItemID   int64  `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type approveRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/requests. Staff only ever see their own requests.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	requesterID, err := queryID(r, "requester_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := queryID(r, "item_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		requesterID = claims.UserID
	}

	reqs, err := h.Workflow.ListRequests(r.Context(), model.RequestFilter{
		RequesterID: requesterID,
		ItemID:      itemID,
		Status:      r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, reqs)
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.Workflow.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	if req.RequesterID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		writeError(w, r, apperr.NotFound("request", id))
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// Create handles POST /api/requests. The requester is always the caller.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	req, err := h.Workflow.CreateRequest(r.Context(), body.ItemID, body.Quantity, body.Note, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("request created", "id", req.ID, "item", req.ItemID, "quantity", req.Quantity, "user", claims.Email)
	jsonResponse(w, http.StatusCreated, req)
}

// Approve handles POST /api/requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body approveRequest
	if err := decodeOptionalJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	req, err := h.Workflow.ApproveRequest(r.Context(), id, claims.UserID, body.Quantity)
	if err != nil {
		if apperr.Is(err, apperr.CodeInsufficientStock) {
			slog.Warn("approval refused", "id", id, "reason", err, "user", claims.Email)
		}
		writeError(w, r, err)
		return
	}

	slog.Info("request approved", "id", req.ID, "quantity", req.Quantity, "user", claims.Email)
	jsonResponse(w, http.StatusOK, req)
}

// Reject handles POST /api/requests/{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body rejectRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	req, err := h.Workflow.RejectRequest(r.Context(), id, claims.UserID, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("request rejected", "id", req.ID, "user", claims.Email)
	jsonResponse(w, http.StatusOK, req)
}
