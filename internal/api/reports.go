package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/audit"
	"github.com/erazemk/pisarna/internal/ledger"
	"github.com/erazemk/pisarna/internal/model"
)

// ReportsHandler serves the read-only ledger and activity log.
type ReportsHandler struct {
	DB *sql.DB
}

// Mutations handles GET /api/mutations.
func (h *ReportsHandler) Mutations(w http.ResponseWriter, r *http.Request) {
	itemID, err := queryID(r, "item_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	mutations, err := ledger.List(r.Context(), h.DB, model.MutationFilter{
		ItemID: itemID,
		Kind:   r.URL.Query().Get("kind"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if mutations == nil {
		mutations = []model.Mutation{}
	}
	jsonResponse(w, http.StatusOK, mutations)
}

// Activity handles GET /api/activity. An optional limit caps the result.
func (h *ReportsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, apperr.Validation("invalid limit").With("limit", raw))
			return
		}
		limit = n
	}

	entries, err := audit.List(r.Context(), h.DB, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.ActivityLogEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
