package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
)

// CacheHandler exposes the metric cache read-only
type CacheHandler struct {
	cache *metriccache.Cache
	clock func() time.Time
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache *metriccache.Cache) *CacheHandler {
	return &CacheHandler{cache: cache, clock: time.Now}
}

// CacheEntryResponse describes one cached identifier
type CacheEntryResponse struct {
	Symbol    string                    `json:"symbol"`
	State     string                    `json:"state"` // hit, failed, expired
	Kind      metriccache.Kind          `json:"kind"`
	FetchedAt time.Time                 `json:"fetched_at"`
	ExpiresAt time.Time                 `json:"expires_at"`
	Reason    string                    `json:"reason,omitempty"`
	Snapshot  *contracts.MetricSnapshot `json:"snapshot,omitempty"`
}

// GetEntry returns the cache state for one identifier
// GET /api/cache/{symbol}
func (h *CacheHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	symbol := metriccache.NormalizeKey(mux.Vars(r)["symbol"])

	record, ok := h.cache.Peek(symbol)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{
			"symbol": symbol,
			"state":  metriccache.Absent.String(),
		})
		return
	}

	resp := CacheEntryResponse{
		Symbol:    symbol,
		Kind:      record.Kind,
		FetchedAt: record.FetchedAt,
		ExpiresAt: record.ExpiresAt(h.cache.TTLs()),
		Reason:    record.Error,
		Snapshot:  record.Payload,
	}

	switch lookup := h.cache.Get(symbol); lookup.State {
	case metriccache.Absent:
		resp.State = "expired"
	default:
		resp.State = lookup.State.String()
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetStats returns cache counters
// GET /api/cache
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cache.Stats())
}
