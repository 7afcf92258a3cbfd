package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

type collectionSummary struct {
	ID          string  `json:"id"`
	Country     string  `json:"country"`
	Name        string  `json:"name"`
	SurveyYear  *int    `json:"survey_year"`
	ResolutionM float64 `json:"resolution_m"`
	NativeCRS   int     `json:"native_crs"`
	DataType    string  `json:"data_type"`
	FileCount   int     `json:"file_count"`
}

func toCollectionSummary(c *geomodel.Collection) collectionSummary {
	return collectionSummary{
		ID:          c.ID,
		Country:     string(c.Country),
		Name:        c.Name,
		SurveyYear:  c.SurveyYear,
		ResolutionM: c.ResolutionM,
		NativeCRS:   c.NativeCRS,
		DataType:    string(c.DataType),
		FileCount:   c.FileCount(),
	}
}

// ListCampaigns answers GET /api/v1/elevation/campaigns: every collection
// with metadata, no files.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	collections := h.provider.Index().Collections
	summaries := make([]collectionSummary, len(collections))
	for i, c := range collections {
		summaries[i] = toCollectionSummary(c)
	}
	RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"campaigns": summaries,
		"total":     len(summaries),
	})
}

type fileRefResponse struct {
	URI       string `json:"uri"`
	SizeBytes int64  `json:"size_bytes"`
	Filename  string `json:"filename"`
}

// GetCampaign answers GET /api/v1/elevation/campaigns/{id}?file_page&file_limit:
// one collection with a paginated FileRef list.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var found *geomodel.Collection
	for _, c := range h.provider.Index().Collections {
		if c.ID == id {
			found = c
			break
		}
	}
	if found == nil {
		RespondNotFound(w, r, "campaign not found")
		return
	}

	page := queryInt(r, "file_page", 0)
	limit := queryInt(r, "file_limit", 100)
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = 100
	}

	start := page * limit
	end := start + limit
	if start > len(found.Files) {
		start = len(found.Files)
	}
	if end > len(found.Files) {
		end = len(found.Files)
	}

	pageFiles := found.Files[start:end]
	files := make([]fileRefResponse, len(pageFiles))
	for i, f := range pageFiles {
		files[i] = fileRefResponse{URI: f.URI, SizeBytes: f.SizeBytes, Filename: f.Filename}
	}

	RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"campaign":   toCollectionSummary(found),
		"files":      files,
		"file_page":  page,
		"file_limit": limit,
		"file_total": len(found.Files),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
