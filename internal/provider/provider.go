// Package provider owns startup sequencing: load and validate the spatial
// index, build the country handler registry, construct every data source
// and its breaker, assemble the orchestrator, and expose the readiness
// signal the request path must wait on.
//
// Mirrors cmd/api/main.go's top-to-bottom service construction and
// defer-based scoped resource release, generalized to a single
// Provider.Close(ctx).
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"

	"github.com/jcom-dev/elevation-api/internal/breaker"
	"github.com/jcom-dev/elevation-api/internal/config"
	"github.com/jcom-dev/elevation-api/internal/countryhandlers"
	"github.com/jcom-dev/elevation-api/internal/crs"
	"github.com/jcom-dev/elevation-api/internal/geoindex"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
	"github.com/jcom-dev/elevation-api/internal/orchestrator"
	"github.com/jcom-dev/elevation-api/internal/raster"
	"github.com/jcom-dev/elevation-api/internal/sources"
)

// Provider owns the spatial index, handler registry, orchestrator, and
// every long-lived client the request path needs. Shared, read-only after
// startup.
type Provider struct {
	cfg *config.Config

	index       *geoindex.Index
	registry    *countryhandlers.Registry
	transformer *crs.Transformer
	sampler     *raster.Sampler
	orch        *orchestrator.Orchestrator

	redisClient *redis.Client

	ready atomic.Bool
}

// bucketClassifier adapts config.Config.PublicBuckets to
// raster.BucketClassifier without leaking a mutable config handle into the
// sampler.
type bucketClassifier struct {
	public map[string]bool
}

func (c bucketClassifier) IsPublicBucket(bucket string) bool { return c.public[bucket] }

// New runs the full startup sequence. Requests must not be served until
// this returns successfully and Ready() is true.
func New(ctx context.Context, cfg *config.Config) (*Provider, error) {
	p := &Provider{cfg: cfg}

	slog.Info("loading spatial index", "uri", cfg.SpatialIndexURI)
	idx, err := geoindex.Load(ctx, cfg.SpatialIndexURI)
	if err != nil {
		return nil, fmt.Errorf("load spatial index: %w", err)
	}
	idx.Collections = filterEnabledCountries(idx.Collections, cfg.Countries)
	p.index = idx

	var fileCount int
	for _, c := range idx.Collections {
		fileCount += c.FileCount()
	}
	slog.Info("spatial index loaded",
		"schema_version", idx.SchemaVersion,
		"collections", len(idx.Collections),
		"files", fileCount,
		"approx_size", humanize.Comma(int64(fileCount)))

	p.registry = countryhandlers.NewRegistry()
	p.transformer = crs.New()
	p.sampler = raster.New(bucketClassifier{public: cfg.PublicBuckets}, 256)

	breakerFactory, err := p.buildBreakerFactory(ctx)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}

	p.orch = orchestrator.New()
	if err := p.wireSources(breakerFactory); err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("wire data sources: %w", err)
	}

	p.ready.Store(true)
	slog.Info("provider ready")
	return p, nil
}

// filterEnabledCountries drops collections for a country disabled via
// ENABLE_COUNTRY_X.
func filterEnabledCountries(collections []*geomodel.Collection, enabled map[string]bool) []*geomodel.Collection {
	out := make([]*geomodel.Collection, 0, len(collections))
	for _, c := range collections {
		if enabled[string(c.Country)] {
			out = append(out, c)
		}
	}
	return out
}

// breakerFactory builds one Breaker per source, either Redis-backed
// (production) or in-memory (development). Production startup fails fast
// if the Redis breaker store is unreachable.
type breakerFactory func(sourceID string, cfg breaker.Config) breaker.Breaker

func (p *Provider) buildBreakerFactory(ctx context.Context) (breakerFactory, error) {
	if p.cfg.Environment == config.Development {
		return func(sourceID string, cfg breaker.Config) breaker.Breaker {
			return breaker.NewMemoryBreaker(cfg)
		}, nil
	}

	opts, err := redis.ParseURL(p.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	p.redisClient = client

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := breaker.Ping(pingCtx, client); err != nil {
		return nil, fmt.Errorf("circuit breaker store unreachable in production: %w", err)
	}

	return func(sourceID string, cfg breaker.Config) breaker.Breaker {
		return breaker.NewRedisBreaker(client, sourceID, cfg)
	}, nil
}

// wireSources constructs every enabled source in priority order
// (private_bucket < public_bucket < http_api_a < http_api_b) and adds it
// to the orchestrator along with its breaker.
func (p *Provider) wireSources(newBreaker breakerFactory) error {
	type sourceSpec struct {
		id       string
		kind     geomodel.SourceKind
		priority int
		cfg      config.SourceConfig
	}

	specs := []sourceSpec{
		{"private_bucket", geomodel.SourceKindPrivateBucket, 0, p.cfg.Sources.PrivateBucket},
		{"public_bucket", geomodel.SourceKindPublicBucket, 1, p.cfg.Sources.PublicBucket},
		{"http_api_a", geomodel.SourceKindHTTPAPIA, 2, p.cfg.Sources.HTTPAPIA},
		{"http_api_b", geomodel.SourceKindHTTPAPIB, 3, p.cfg.Sources.HTTPAPIB},
	}

	for _, spec := range specs {
		if !spec.cfg.Enabled {
			slog.Info("data source disabled", "source", spec.id)
			continue
		}

		var src sources.DataSource
		switch spec.kind {
		case geomodel.SourceKindPrivateBucket, geomodel.SourceKindPublicBucket:
			src = sources.NewBucketSource(spec.id, spec.kind, p.index, p.registry, p.transformer, p.sampler)
		case geomodel.SourceKindHTTPAPIA, geomodel.SourceKindHTTPAPIB:
			src = sources.NewHTTPSource(spec.id, spec.kind, spec.cfg.BaseURL, spec.cfg.APIKey, spec.cfg.Timeout, spec.cfg.DailyRequestQuota)
		default:
			return fmt.Errorf("unknown source kind %q", spec.kind)
		}

		b := newBreaker(spec.id, breaker.Config{
			FailureThreshold: spec.cfg.FailureThreshold,
			RecoveryTimeout:  spec.cfg.RecoveryTimeout,
		})

		p.orch.Add(geomodel.SourceDescriptor{ID: spec.id, Kind: spec.kind, Priority: spec.priority}, src, b, spec.cfg.Timeout)
		slog.Info("data source wired", "source", spec.id, "priority", spec.priority, "timeout", spec.cfg.Timeout)
	}

	return nil
}

// Ready reports whether startup has completed; requests must not be
// served before this returns true.
func (p *Provider) Ready() bool { return p.ready.Load() }

// Orchestrator exposes the assembled fallback chain to the request path
// (internal/elevation).
func (p *Provider) Orchestrator() *orchestrator.Orchestrator { return p.orch }

// Index exposes the loaded spatial index read-only, for the campaigns
// listing endpoints.
func (p *Provider) Index() *geoindex.Index { return p.index }

// BatchMaxPoints and QueryConcurrency surface the relevant config to the
// elevation service without handing it the whole Config value.
func (p *Provider) BatchMaxPoints() int    { return p.cfg.BatchMaxPoints }
func (p *Provider) QueryConcurrency() int { return p.cfg.QueryConcurrency }

// CollectionCount and ProviderType back the /api/v1/health response.
func (p *Provider) CollectionCount() int { return len(p.index.Collections) }
func (p *Provider) ProviderType() string {
	if p.cfg.Environment == config.Production {
		return "redis"
	}
	return "memory"
}

// Close releases every long-lived resource: the CRS transformer's cached
// PROJ transforms, the raster dataset-handle cache, and (if Redis-backed)
// the breaker store connection. Called on graceful shutdown, on any
// startup error, and on process signals.
func (p *Provider) Close(ctx context.Context) error {
	p.ready.Store(false)
	if p.transformer != nil {
		p.transformer.Close()
	}
	if p.sampler != nil {
		p.sampler.Close()
	}
	if p.redisClient != nil {
		return p.redisClient.Close()
	}
	return nil
}
