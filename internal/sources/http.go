package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// HTTPSource implements http_api_a and http_api_b: a single
// timeout-configured *http.Client performing one GET per request, in the
// same client.Do/json.Decode shape used elsewhere in this codebase for
// outbound API calls.
type HTTPSource struct {
	id      string
	kind    geomodel.SourceKind
	client  *http.Client
	baseURL string
	apiKey  string

	quota *dailyQuota
}

// NewHTTPSource builds an HTTP-backed elevation source. dailyRequestQuota
// of 0 disables quota tracking.
func NewHTTPSource(id string, kind geomodel.SourceKind, baseURL, apiKey string, timeout time.Duration, dailyRequestQuota int) *HTTPSource {
	return &HTTPSource{
		id:      id,
		kind:    kind,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		quota:   newDailyQuota(dailyRequestQuota),
	}
}

func (s *HTTPSource) ID() string               { return s.id }
func (s *HTTPSource) Kind() geomodel.SourceKind { return s.kind }

// apiResponse is the shared shape both external elevation APIs return:
// either an elevation value, an explicit "no coverage" flag, or an error.
// Real providers vary in field names; each kind's GetElevation builds its
// own query and decodes into this generalized shape.
type apiResponse struct {
	ElevationM *float64 `json:"elevation"`
	NoData     bool     `json:"no_data"`
}

func (s *HTTPSource) GetElevation(ctx context.Context, qp *geomodel.QueryPoint) geomodel.ElevationOutcome {
	if s.quota != nil && !s.quota.take() {
		return geomodel.Error(geomodel.ErrRateLimited, s.id, "daily request quota exhausted")
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(qp.Point.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(qp.Point.Lon, 'f', -1, 64))
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return geomodel.Error(geomodel.ErrInternal, s.id, err.Error())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return geomodel.Error(geomodel.ErrTimeout, s.id, err.Error())
		}
		return geomodel.Error(geomodel.ErrUpstream, s.id, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfterSeconds(resp.Header.Get("Retry-After"))
		return geomodel.ErrorWithRetryAfter(geomodel.ErrRateLimited, s.id, "rate limited (429)", retryAfter)
	}
	if resp.StatusCode != http.StatusOK {
		return geomodel.Error(geomodel.ErrUpstream, s.id, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return geomodel.Error(geomodel.ErrUpstream, s.id, fmt.Sprintf("decode response: %v", err))
	}

	if decoded.NoData || decoded.ElevationM == nil {
		return geomodel.NotCovered()
	}

	return geomodel.Found(s.id, *decoded.ElevationM, 0, "", "")
}

func (s *HTTPSource) Health(ctx context.Context) HealthStatus {
	if s.baseURL == "" {
		return HealthStatus{OK: false, Detail: "base url not configured"}
	}
	return HealthStatus{OK: true, Detail: s.baseURL}
}

func (s *HTTPSource) Coverage() Coverage {
	return Coverage{Description: string(s.kind) + " global HTTP elevation API"}
}

func parseRetryAfterSeconds(header string) int {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return secs
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d > 0 {
			return int(d.Seconds())
		}
	}
	return 0
}

// dailyQuota is a simple in-process counter that resets at UTC midnight,
// tracking the free-tier daily quota configured for a source.
type dailyQuota struct {
	limit int

	mu       sync.Mutex
	count    int
	resetDay int
}

func newDailyQuota(limit int) *dailyQuota {
	if limit <= 0 {
		return nil
	}
	return &dailyQuota{limit: limit}
}

func (q *dailyQuota) take() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	today := time.Now().UTC().YearDay()
	if today != q.resetDay {
		q.resetDay = today
		q.count = 0
	}
	if q.count >= q.limit {
		return false
	}
	q.count++
	return true
}
