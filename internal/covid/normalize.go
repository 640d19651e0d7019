package covid

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRecord is one undecoded country object as returned by the provider.
type RawRecord map[string]any

// Normalize maps a raw provider country record into a CountrySnapshot.
// It fails with *MalformedRecordError when the country name is missing or a
// count is absent, non-integral or negative.
func Normalize(raw RawRecord) (CountrySnapshot, error) {
	if raw == nil {
		return CountrySnapshot{}, malformed("record", "null record")
	}

	name, ok := raw["country"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return CountrySnapshot{}, malformed("country", "missing or empty")
	}

	snap := CountrySnapshot{
		Name:    name,
		FlagURL: flagURL(raw),
	}

	fields := []struct {
		key string
		dst *int64
	}{
		{"cases", &snap.Cases},
		{"deaths", &snap.Deaths},
		{"recovered", &snap.Recovered},
		{"population", &snap.Population},
	}
	for _, f := range fields {
		v, present := raw[f.key]
		if !present || v == nil {
			return CountrySnapshot{}, malformed(f.key, "missing")
		}
		n, err := toCount(v)
		if err != nil {
			return CountrySnapshot{}, malformed(f.key, err.Error())
		}
		*f.dst = n
	}

	return snap, nil
}

func flagURL(raw RawRecord) string {
	info, ok := raw["countryInfo"].(map[string]any)
	if !ok {
		return ""
	}
	flag, _ := info["flag"].(string)
	return flag
}

// toCount coerces a decoded JSON value into a non-negative integer.
func toCount(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return nonNegative(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n.String())
		}
		return fromFloat(f)
	case float64:
		return fromFloat(n)
	case int:
		return nonNegative(int64(n))
	case int64:
		return nonNegative(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", n)
		}
		return nonNegative(i)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func fromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %v", f)
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("out of range: %v", f)
	}
	return nonNegative(int64(f))
}

func nonNegative(i int64) (int64, error) {
	if i < 0 {
		return 0, fmt.Errorf("negative value %d", i)
	}
	return i, nil
}
