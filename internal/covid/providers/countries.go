package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/i474232898/covid-stats/internal/covid"
)

// CountryRepository lists and looks up country snapshots.
type CountryRepository struct {
	client Fetcher
}

func NewCountryRepository(client Fetcher) *CountryRepository {
	return &CountryRepository{client: client}
}

// ListAll fetches /countries and normalizes every record, keeping provider
// order. One malformed record fails the whole call; the error carries its index.
func (r *CountryRepository) ListAll(ctx context.Context) ([]covid.CountrySnapshot, error) {
	raw, err := r.client.FetchJSON(ctx, "countries", nil)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var records []covid.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, &covid.MalformedRecordError{Index: -1, Field: "countries", Reason: "expected an array of objects"}
	}

	snapshots := make([]covid.CountrySnapshot, 0, len(records))
	for i, rec := range records {
		snap, err := covid.Normalize(rec)
		if err != nil {
			var mre *covid.MalformedRecordError
			if errors.As(err, &mre) {
				mre.Index = i
			}
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// FindByName is an exact, case-sensitive lookup over snapshots.
func (r *CountryRepository) FindByName(snapshots []covid.CountrySnapshot, name string) (covid.CountrySnapshot, error) {
	return covid.FindByName(snapshots, name)
}
