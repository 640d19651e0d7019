package covid

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// Service is the boundary the presentation layer talks to. It composes the
// country and timeline sources with the yearly aggregator and owns the retry
// policy for provider calls.
type Service struct {
	countries CountrySource
	history   TimelineSource
	backoff   BackoffConfig
	circuit   *gobreaker.CircuitBreaker
}

// Option customizes a Service.
type Option func(*Service)

// WithBackoff overrides the retry policy.
func WithBackoff(cfg BackoffConfig) Option {
	return func(s *Service) { s.backoff = cfg }
}

// WithCircuitBreaker overrides the breaker guarding provider calls.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(s *Service) { s.circuit = cb }
}

// NewService creates a new Service.
func NewService(countries CountrySource, history TimelineSource, opts ...Option) *Service {
	s := &Service{
		countries: countries,
		history:   history,
		backoff:   DefaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.circuit == nil {
		s.circuit = NewCircuitBreaker("disease.sh")
	}
	return s
}

// GetAllCountries returns every country snapshot in provider order.
func (s *Service) GetAllCountries(ctx context.Context) ([]CountrySnapshot, error) {
	if s.countries == nil {
		return nil, errors.New("no country source configured")
	}
	return withResilience(ctx, "list countries", s.backoff, s.circuit, s.countries.ListAll)
}

// GetHistory returns the daily timeline for country over rng. An empty rng means RangeAll.
func (s *Service) GetHistory(ctx context.Context, country string, rng Range) (DailyTimeline, error) {
	if s.history == nil {
		return DailyTimeline{}, errors.New("no timeline source configured")
	}
	rng, err := ParseRange(string(rng))
	if err != nil {
		return DailyTimeline{}, err
	}
	return withResilience(ctx, "fetch timeline", s.backoff, s.circuit, func(ctx context.Context) (DailyTimeline, error) {
		return s.history.FetchTimeline(ctx, country, rng)
	})
}

// GetCountry lists all countries and returns the exact match for name.
func (s *Service) GetCountry(ctx context.Context, name string) (CountrySnapshot, error) {
	all, err := s.GetAllCountries(ctx)
	if err != nil {
		return CountrySnapshot{}, err
	}
	return FindByName(all, name)
}

// GetChart fetches the history for country and collapses the chosen metric by year.
func (s *Service) GetChart(ctx context.Context, country string, rng Range, metric Metric) (ChartSeries, error) {
	tl, err := s.GetHistory(ctx, country, rng)
	if err != nil {
		return ChartSeries{}, err
	}
	return AggregateSeriesByYear(tl.Series(metric)), nil
}

// GetCountryDetail fetches the country list and the history concurrently,
// joins both, then resolves the snapshot and builds the cases chart.
func (s *Service) GetCountryDetail(ctx context.Context, name string, rng Range) (CountryDetail, error) {
	var (
		all []CountrySnapshot
		tl  DailyTimeline
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.GetAllCountries(gctx)
		if err != nil {
			return fmt.Errorf("list countries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tl, err = s.GetHistory(gctx, name, rng)
		if err != nil {
			return fmt.Errorf("fetch history for %s: %w", name, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Err(err).Str("country", name).Msg("country detail fetch failed")
		return CountryDetail{}, err
	}

	snap, err := FindByName(all, name)
	if err != nil {
		return CountryDetail{}, err
	}

	return CountryDetail{
		Country: snap,
		Chart:   AggregateByYear(tl),
	}, nil
}

// CircuitState reports the provider breaker state ("closed", "half-open", "open").
func (s *Service) CircuitState() string {
	return s.circuit.State().String()
}
