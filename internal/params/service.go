package params

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoSource is returned by Refresh when the service has no upstream.
var ErrNoSource = errors.New("no calculation parameters source configured")

// Service resolves calculation parameters through a cache and a source,
// substituting fallbacks when the source fails. Build one per application
// session and pass it to call sites.
type Service struct {
	logger *zap.Logger
	source Source
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	fetchTimeout time.Duration

	mu        sync.RWMutex
	fallbacks Fallbacks
}

// Option customises a Service.
type Option func(*Service)

// WithTTL sets how long fetched parameters stay fresh.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds a shared upstream fetch. The fetch outlives the
// caller that started it, so this is the only limit on its duration.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithClock overrides the clock used to stamp cache entries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFallbacks replaces the default fallback parameters.
func WithFallbacks(fallbacks Fallbacks) Option {
	return func(s *Service) {
		if fallbacks != nil {
			s.fallbacks = fallbacks
		}
	}
}

// NewService wires a source and a cache together. A nil source means every
// lookup resolves to the fallbacks; a nil cache means a fresh MemoryCache.
func NewService(logger *zap.Logger, source Source, cache Cache, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	s := &Service{
		logger:       logger,
		source:       source,
		cache:        cache,
		ttl:          constants.DefaultParametersCacheTTL,
		now:          time.Now,
		fallbacks:    DefaultFallbacks(),
		fetchTimeout: constants.DefaultParametersTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFallbacks swaps the fallback table, e.g. after a configuration reload.
func (s *Service) SetFallbacks(fallbacks Fallbacks) {
	if fallbacks == nil {
		return
	}
	s.mu.Lock()
	s.fallbacks = fallbacks
	s.mu.Unlock()
}

// Fallback returns the fallback parameters for path.
func (s *Service) Fallback(path BusinessPath) Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallbacks.For(path)
}

// Parameters returns fresh cached parameters, fetching them when needed.
// Any failure is logged and answered with the fallback for path, which is
// not cached so the next call retries the source.
func (s *Service) Parameters(ctx context.Context, path BusinessPath) Parameters {
	entry, ok, err := s.cache.Get(ctx, path)
	if err != nil {
		s.logger.Warn("failed to read calculation parameters cache",
			zap.String("op", "params.Service.Parameters"),
			zap.String("business_path", string(path)),
			zap.Error(err),
		)
	}
	if ok && !entry.Expired(s.now()) {
		return entry.Parameters
	}

	fetched, err := s.load(ctx, path)
	if err != nil {
		s.logger.Warn("using fallback calculation parameters",
			zap.String("op", "params.Service.Parameters"),
			zap.String("business_path", string(path)),
			zap.Error(err),
		)
		return s.Fallback(path)
	}
	return fetched
}

// Refresh fetches parameters for path and stores them regardless of the
// current cache state.
func (s *Service) Refresh(ctx context.Context, path BusinessPath) error {
	_, err := s.load(ctx, path)
	return err
}

// load fetches and caches parameters for path. Concurrent callers for the
// same path share one upstream request. The shared request ignores the
// cancellation of whichever caller started it; each caller stops waiting
// when its own ctx is done.
func (s *Service) load(ctx context.Context, path BusinessPath) (Parameters, error) {
	if s.source == nil {
		return Parameters{}, ErrNoSource
	}

	ch := s.group.DoChan(string(path), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, path)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Parameters{}, res.Err
		}
		return res.Val.(Parameters).Clone(), nil
	case <-ctx.Done():
		return Parameters{}, fmt.Errorf("gave up waiting for %s parameters: %w", path, ctx.Err())
	}
}

func (s *Service) fetch(ctx context.Context, path BusinessPath) (Parameters, error) {
	fetched, err := s.source.Fetch(ctx, path)
	if err != nil {
		return Parameters{}, fmt.Errorf("failed to fetch %s parameters: %w", path, err)
	}
	if fetched == nil {
		return Parameters{}, fmt.Errorf("%w: empty parameters for %s", ErrMalformedResponse, path)
	}

	now := s.now()
	entry := Entry{
		Parameters: fetched.Clone(),
		FetchedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if entry.Parameters.BusinessPath == "" {
		entry.Parameters.BusinessPath = path
	}
	if err := s.cache.Set(ctx, path, entry); err != nil {
		s.logger.Warn("failed to store calculation parameters",
			zap.String("op", "params.Service.fetch"),
			zap.String("business_path", string(path)),
			zap.Error(err),
		)
	}
	return entry.Parameters, nil
}

// CurrentRate returns the current annual interest rate, in percent.
func (s *Service) CurrentRate(ctx context.Context, path BusinessPath) float64 {
	return s.Parameters(ctx, path).CurrentInterestRate
}

// Ratios returns the LTV ratio table for path.
func (s *Service) Ratios(ctx context.Context, path BusinessPath) ltv.RatioTable {
	return s.Parameters(ctx, path).Ratios()
}

// OwnershipLTV returns the LTV percentage for an ownership status.
func (s *Service) OwnershipLTV(ctx context.Context, path BusinessPath, o ltv.Ownership) float64 {
	return s.Parameters(ctx, path).OwnershipLTV(o)
}

// StandardValue returns a banking standard, or 0 when it is not defined.
func (s *Service) StandardValue(ctx context.Context, path BusinessPath, category, name string) float64 {
	return s.Parameters(ctx, path).StandardValue(category, name)
}

// Bounds computes financing bounds with the ratios for path.
func (s *Service) Bounds(ctx context.Context, path BusinessPath, price float64, o ltv.Ownership) ltv.Bounds {
	return ltv.ComputeBounds(price, o, s.Ratios(ctx, path))
}

// ClearCache drops every cached entry.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
