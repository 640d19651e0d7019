package covid

import (
	"sort"
	"strconv"
)

// AggregateByYear collapses the timeline's daily cases into one point per year.
func AggregateByYear(timeline DailyTimeline) ChartSeries {
	return AggregateSeriesByYear(timeline.Cases)
}

// AggregateSeriesByYear keeps the first value seen for each year, in scan
// order, and returns the years ascending. An empty series yields a single
// blank label with a zero value so a chart always has something to draw.
// Points whose date does not parse are skipped.
func AggregateSeriesByYear(points Series) ChartSeries {
	if len(points) == 0 {
		return ChartSeries{Labels: []string{""}, Values: []int64{0}}
	}

	type yearValue struct {
		year  int
		value int64
	}

	seen := make(map[int]struct{})
	kept := make([]yearValue, 0)
	for _, p := range points {
		d, err := ParseProviderDate(p.Date)
		if err != nil {
			continue
		}
		year := d.Year()
		if _, ok := seen[year]; ok {
			continue
		}
		seen[year] = struct{}{}
		kept = append(kept, yearValue{year: year, value: p.Value})
	}

	if len(kept) == 0 {
		return ChartSeries{Labels: []string{""}, Values: []int64{0}}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].year < kept[j].year })

	out := ChartSeries{
		Labels: make([]string, 0, len(kept)),
		Values: make([]int64, 0, len(kept)),
	}
	for _, kv := range kept {
		out.Labels = append(out.Labels, strconv.Itoa(kv.year))
		out.Values = append(out.Values, kv.value)
	}
	return out
}
