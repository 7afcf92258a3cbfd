package handlers

import "net/http"

type sourceHealth struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// Health answers GET /api/v1/health: readiness, collection count, which
// breaker store is in use, and every source's current circuit state.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !h.provider.Ready() {
		status = "starting"
	}

	snapshots := h.provider.Orchestrator().HealthSnapshot(r.Context())
	sources := make([]sourceHealth, len(snapshots))
	for i, s := range snapshots {
		sources[i] = sourceHealth{ID: s.ID, State: string(s.State)}
	}

	RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":           status,
		"collection_count": h.provider.CollectionCount(),
		"provider_type":    h.provider.ProviderType(),
		"sources":          sources,
	})
}
