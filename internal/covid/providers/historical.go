package providers

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/i474232898/covid-stats/internal/covid"
)

var errEmptyCountry = errors.New("country is required")

// HistoricalFetcher retrieves a country's daily timeline.
type HistoricalFetcher struct {
	client Fetcher
}

func NewHistoricalFetcher(client Fetcher) *HistoricalFetcher {
	return &HistoricalFetcher{client: client}
}

// FetchTimeline calls /historical/{country}?lastdays={rng} with the country
// name percent-encoded as a single path segment.
func (f *HistoricalFetcher) FetchTimeline(ctx context.Context, country string, rng covid.Range) (covid.DailyTimeline, error) {
	if strings.TrimSpace(country) == "" {
		return covid.DailyTimeline{}, errEmptyCountry
	}
	if rng == "" {
		rng = covid.RangeAll
	}
	if err := rng.Validate(); err != nil {
		return covid.DailyTimeline{}, err
	}

	query := url.Values{}
	query.Set("lastdays", rng.String())

	raw, err := f.client.FetchJSON(ctx, "historical/"+url.PathEscape(country), query)
	if err != nil {
		return covid.DailyTimeline{}, err
	}

	tl, err := covid.DecodeTimeline(raw)
	if err != nil {
		return covid.DailyTimeline{}, err
	}
	if tl.Country == "" {
		tl.Country = country
	}
	return tl, nil
}
