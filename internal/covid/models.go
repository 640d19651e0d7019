package covid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CountrySnapshot is the normalized, current statistics view of one country.
type CountrySnapshot struct {
	Name       string `json:"name"`
	FlagURL    string `json:"flagUrl"`
	Cases      int64  `json:"cases"`
	Deaths     int64  `json:"deaths"`
	Recovered  int64  `json:"recovered"`
	Population int64  `json:"population"`
}

// DatePoint is a single provider-native date ("M/D/YY") and its count.
type DatePoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// Series is a date-ordered sequence of points, kept in provider order.
type Series []DatePoint

// DailyTimeline is the historical daily series for one country.
// Cases is always present; Deaths and Recovered may be empty.
type DailyTimeline struct {
	Country   string   `json:"country"`
	Provinces []string `json:"province,omitempty"`
	Cases     Series   `json:"cases"`
	Deaths    Series   `json:"deaths,omitempty"`
	Recovered Series   `json:"recovered,omitempty"`
}

// ChartSeries is the sparse, year-indexed series derived from a timeline.
// Labels and Values are index-aligned.
type ChartSeries struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

// Metric selects which timeline series is charted.
type Metric string

const (
	MetricCases     Metric = "cases"
	MetricDeaths    Metric = "deaths"
	MetricRecovered Metric = "recovered"
)

// Series returns the timeline series matching the metric.
func (t DailyTimeline) Series(m Metric) Series {
	switch m {
	case MetricDeaths:
		return t.Deaths
	case MetricRecovered:
		return t.Recovered
	default:
		return t.Cases
	}
}

// CountryDetail is what a detail view renders: the snapshot and its cases chart.
type CountryDetail struct {
	Country CountrySnapshot `json:"country"`
	Chart   ChartSeries     `json:"chart"`
}

// Range is the trailing-day window requested from the provider: "all" or a
// positive number of days.
type Range string

// RangeAll requests the full history.
const RangeAll Range = "all"

// ErrInvalidRange is returned for a range that is neither "all" nor a positive integer.
var ErrInvalidRange = errors.New("invalid range")

// Days returns a Range covering the last n days.
func Days(n int) Range {
	return Range(strconv.Itoa(n))
}

// ParseRange accepts "all" (any case, surrounding spaces ignored) or a positive integer.
// An empty string means RangeAll.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(RangeAll)) {
		return RangeAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("%w %q: must be \"all\" or a positive integer", ErrInvalidRange, s)
	}
	return Days(n), nil
}

// Validate reports whether r is a value the provider accepts.
func (r Range) Validate() error {
	parsed, err := ParseRange(string(r))
	if err != nil {
		return err
	}
	if parsed != r {
		return fmt.Errorf("%w %q: not in canonical form", ErrInvalidRange, string(r))
	}
	return nil
}

func (r Range) String() string {
	return string(r)
}
