package covid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CenturySplitThreshold decides the century of a two-digit year: values below
// it are 20YY, values at or above it are 19YY.
const CenturySplitThreshold = 50

// ProviderDate is a parsed provider date key in M/D/YY form.
type ProviderDate struct {
	Month int
	Day   int
	YY    int
}

// Year returns the four-digit year under the century-split policy.
func (d ProviderDate) Year() int {
	return ExpandYear(d.YY)
}

// ExpandYear maps a two-digit year to four digits using CenturySplitThreshold.
func ExpandYear(yy int) int {
	if yy < CenturySplitThreshold {
		return 2000 + yy
	}
	return 1900 + yy
}

// ParseProviderDate parses "M/D/YY" (month and day may be zero-padded, the
// year is exactly two digits).
func ParseProviderDate(s string) (ProviderDate, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ProviderDate{}, fmt.Errorf("date %q: want M/D/YY", s)
	}
	month, ok := parseBounded(parts[0], 1, 2, 1, 12)
	if !ok {
		return ProviderDate{}, fmt.Errorf("date %q: bad month", s)
	}
	day, ok := parseBounded(parts[1], 1, 2, 1, 31)
	if !ok {
		return ProviderDate{}, fmt.Errorf("date %q: bad day", s)
	}
	yy, ok := parseBounded(parts[2], 2, 2, 0, 99)
	if !ok {
		return ProviderDate{}, fmt.Errorf("date %q: bad year", s)
	}
	return ProviderDate{Month: month, Day: day, YY: yy}, nil
}

func parseBounded(s string, minLen, maxLen, lo, hi int) (int, bool) {
	if len(s) < minLen || len(s) > maxLen || !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// orderedSeries decodes a JSON object of date -> count without losing key order.
type orderedSeries Series

func (s *orderedSeries) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return malformed("timeline", "series is not an object")
	}

	seen := make(map[string]struct{})
	out := make(Series, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return malformed("timeline", "non-string date key")
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		if _, err := ParseProviderDate(key); err != nil {
			return malformed("timeline", err.Error())
		}
		if raw == nil {
			return malformed("timeline", fmt.Sprintf("null value for %s", key))
		}
		n, err := toCount(raw)
		if err != nil {
			return malformed("timeline", fmt.Sprintf("%s: %v", key, err))
		}

		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, DatePoint{Date: key, Value: n})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = orderedSeries(out)
	return nil
}

type rawHistorical struct {
	Country  string   `json:"country"`
	Province []string `json:"province"`
	Timeline *struct {
		Cases     *orderedSeries `json:"cases"`
		Deaths    *orderedSeries `json:"deaths"`
		Recovered *orderedSeries `json:"recovered"`
	} `json:"timeline"`
}

// DecodeTimeline parses a provider historical payload. The cases mapping is
// required; deaths and recovered are optional. Date order is preserved.
func DecodeTimeline(payload []byte) (DailyTimeline, error) {
	var raw rawHistorical
	if err := json.Unmarshal(payload, &raw); err != nil {
		var mre *MalformedRecordError
		if errors.As(err, &mre) {
			return DailyTimeline{}, mre
		}
		return DailyTimeline{}, malformed("timeline", err.Error())
	}
	if raw.Timeline == nil {
		return DailyTimeline{}, malformed("timeline", "missing")
	}
	if raw.Timeline.Cases == nil {
		return DailyTimeline{}, malformed("timeline.cases", "missing")
	}

	tl := DailyTimeline{
		Country:   raw.Country,
		Provinces: raw.Province,
		Cases:     Series(*raw.Timeline.Cases),
	}
	if raw.Timeline.Deaths != nil {
		tl.Deaths = Series(*raw.Timeline.Deaths)
	}
	if raw.Timeline.Recovered != nil {
		tl.Recovered = Series(*raw.Timeline.Recovered)
	}
	return tl, nil
}
