package covid

import "context"

// CountrySource lists every country snapshot the provider knows about.
type CountrySource interface {
	ListAll(ctx context.Context) ([]CountrySnapshot, error)
}

// TimelineSource fetches the daily history for one country.
type TimelineSource interface {
	FetchTimeline(ctx context.Context, country string, rng Range) (DailyTimeline, error)
}
