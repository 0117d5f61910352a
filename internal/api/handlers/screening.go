package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// ScreeningHandler serves persisted screening batches
// ⭐ SSOT: 스크리닝 결과 API 핸들러는 이 구조체에서만
type ScreeningHandler struct {
	store  contracts.ResultsStore
	logger *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(store contracts.ResultsStore, log *logger.Logger) *ScreeningHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ScreeningHandler{store: store, logger: log}
}

// GetLatest returns the newest batch for a tag
// GET /api/screening/latest?tag=dual&passed_only=true
func (h *ScreeningHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")

	batch, err := h.store.Latest(r.Context(), tag)
	if errors.Is(err, contracts.ErrNoBatch) {
		respondError(w, http.StatusNotFound, "No screening batch found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest batch")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve screening batch")
		return
	}

	if passedOnly, _ := strconv.ParseBool(r.URL.Query().Get("passed_only")); passedOnly {
		filtered := *batch
		filtered.Results = batch.Passed()
		batch = &filtered
	}

	respondJSON(w, http.StatusOK, batch)
}

// List returns batch references, newest first
// GET /api/screening/list?tag=dual&limit=20
func (h *ScreeningHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	refs, err := h.store.List(r.Context(), q.Get("tag"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list batches")
		respondError(w, http.StatusInternalServerError, "Failed to list screening batches")
		return
	}
	if refs == nil {
		refs = []contracts.BatchRef{}
	}
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(refs),
		"batches": refs,
	})
}
