package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ultra_pricing_cache_hits_total",
		Help: "Pricing catalog lookups served from the in-memory or disk cache without a remote fetch.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ultra_pricing_cache_misses_total",
		Help: "Pricing catalog lookups that triggered a remote fetch.",
	})
	staleServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ultra_pricing_stale_served_total",
		Help: "Pricing catalog responses served from a stale disk cache after a failed remote fetch.",
	})
)

// fetchRateLimit caps how often a forceRefresh storm is allowed to actually
// reach the network; the in-flight-fetch mutex below collapses concurrent
// callers, this limiter smooths repeated sequential calls.
const fetchRateLimit = rate.Limit(1.0 / 10.0) // one token per 10s

// Service is the pricing cache and cost calculator described in spec.md
// §4.3: a two-layer (memory, disk) cache in front of the upstream LiteLLM
// pricing document, with graceful degradation to stale data when the
// remote fetch fails.
type Service struct {
	httpClient *http.Client
	sourceURL  string
	cachePath  string
	logger     *slog.Logger

	mu       sync.Mutex
	fetching sync.Mutex
	limiter  *rate.Limiter
	memCache Catalog
	memStamp time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSourceURL overrides the upstream pricing document URL.
func WithSourceURL(url string) Option {
	return func(s *Service) { s.sourceURL = url }
}

// WithCachePath overrides the on-disk cache file path.
func WithCachePath(path string) Option {
	return func(s *Service) { s.cachePath = path }
}

// WithLogger overrides the service's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a Service. httpClient is typically produced by
// internal/httpclient.New.
func New(httpClient *http.Client, opts ...Option) *Service {
	s := &Service{
		httpClient: httpClient,
		sourceURL:  defaultSourceURL,
		logger:     slog.Default(),
		limiter:    rate.NewLimiter(fetchRateLimit, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cachePath == "" {
		if path, err := diskCachePath(); err == nil {
			s.cachePath = path
		}
	}
	return s
}

// GetLatestPricing returns the current pricing catalog, fetching remotely
// when the cache is stale or forceRefresh is set. Per spec.md §4.3: a
// failed remote fetch falls back to a stale disk cache with a warning
// rather than failing outright; only when no cache exists at all does it
// return errs.ErrPricingUnavailable.
func (s *Service) GetLatestPricing(ctx context.Context, forceRefresh bool) (Catalog, error) {
	s.mu.Lock()
	if !forceRefresh && s.memCache != nil && s.memStamp.Add(memoryTTL).After(time.Now()) {
		catalog := s.memCache
		s.mu.Unlock()
		cacheHits.Inc()
		return catalog, nil
	}
	s.mu.Unlock()

	// Only one fetch in flight at a time; callers that lose the race wait
	// for it and then re-check the memory cache it populated.
	s.fetching.Lock()
	defer s.fetching.Unlock()

	s.mu.Lock()
	if !forceRefresh && s.memCache != nil && s.memStamp.Add(memoryTTL).After(time.Now()) {
		catalog := s.memCache
		s.mu.Unlock()
		cacheHits.Inc()
		return catalog, nil
	}
	s.mu.Unlock()

	diskCF, diskOK, err := readDiskCache(s.cachePath)
	if err != nil {
		s.logger.Warn("pricing: failed to read disk cache", "error", err)
	}

	if !forceRefresh && diskOK && diskCF.Metadata.fresh(time.Now()) {
		s.setMemCache(diskCF.Data, diskCF.Metadata.Timestamp)
		cacheHits.Inc()
		return diskCF.Data, nil
	}

	cacheMisses.Inc()

	if !s.limiter.Allow() {
		if diskOK {
			s.logger.Warn("pricing: refresh rate-limited, serving stale disk cache",
				"cached_at", diskCF.Metadata.Timestamp)
			staleServed.Inc()
			s.setMemCache(diskCF.Data, diskCF.Metadata.Timestamp)
			return diskCF.Data, nil
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPricingUnavailable, err)
		}
	}

	catalog, fetchErr := fetchRemote(s.httpClient, s.sourceURL)
	if fetchErr == nil {
		now := time.Now()
		s.setMemCache(catalog, now)
		cf := &cacheFile{
			Metadata: cacheMetadata{Timestamp: now, SourceURL: s.sourceURL, TTL: diskTTL},
			Data:     catalog,
		}
		if err := writeDiskCache(s.cachePath, cf); err != nil {
			s.logger.Warn("pricing: failed to persist disk cache", "error", err)
		}
		return catalog, nil
	}

	if diskOK {
		s.logger.Warn("pricing: remote fetch failed, serving stale disk cache",
			"error", fetchErr, "cached_at", diskCF.Metadata.Timestamp)
		staleServed.Inc()
		s.setMemCache(diskCF.Data, diskCF.Metadata.Timestamp)
		return diskCF.Data, nil
	}

	return nil, fmt.Errorf("%w: %v", errs.ErrPricingUnavailable, fetchErr)
}

// CacheInfo summarizes cache state for the admin CLI's "pricing info"
// command.
type CacheInfo struct {
	Path      string
	Exists    bool
	Fresh     bool
	Timestamp time.Time
	SourceURL string
	Entries   int
}

// Info reports the on-disk cache's state without triggering a fetch.
func (s *Service) Info() (*CacheInfo, error) {
	cf, ok, err := readDiskCache(s.cachePath)
	if err != nil {
		return nil, err
	}
	info := &CacheInfo{Path: s.cachePath, Exists: ok}
	if ok {
		info.Fresh = cf.Metadata.fresh(time.Now())
		info.Timestamp = cf.Metadata.Timestamp
		info.SourceURL = cf.Metadata.SourceURL
		info.Entries = len(cf.Data)
	}
	return info, nil
}

// Clear removes the on-disk and in-memory pricing cache.
func (s *Service) Clear() error {
	s.mu.Lock()
	s.memCache = nil
	s.memStamp = time.Time{}
	s.mu.Unlock()

	if err := os.Remove(s.cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ultra-mcp: clear pricing cache: %w", err)
	}
	return nil
}

func (s *Service) setMemCache(catalog Catalog, stamp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memCache = catalog
	s.memStamp = stamp
}

// Calculate computes the cost of a request, applying the tiered pricing
// rule from spec.md §4.3: once total input (or output) tokens exceed
// 200,000, the portion above the threshold bills at the entry's "above"
// rate, if one is configured.
func (s *Service) Calculate(ctx context.Context, model string, inputTokens, outputTokens int) (*Result, error) {
	catalog, err := s.GetLatestPricing(ctx, false)
	if err != nil {
		return nil, err
	}

	entry, ok := lookup(catalog, model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownModel, model)
	}

	inputCost, inputTiered := tieredCost(inputTokens, entry.InputCostPerToken, entry.InputCostPerTokenAbove200k)
	outputCost, outputTiered := tieredCost(outputTokens, entry.OutputCostPerToken, entry.OutputCostPerTokenAbove200k)

	return &Result{
		InputCost:     inputCost,
		OutputCost:    outputCost,
		TotalCost:     inputCost + outputCost,
		TieredApplied: inputTiered || outputTiered,
	}, nil
}

func tieredCost(tokens int, baseRate float64, aboveRate *float64) (float64, bool) {
	if aboveRate == nil || tokens <= tieredThreshold {
		return float64(tokens) * baseRate, false
	}

	below := tieredThreshold
	above := tokens - tieredThreshold
	return float64(below)*baseRate + float64(above)*(*aboveRate), true
}
