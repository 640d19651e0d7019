package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/covid-stats/internal/covid"
)

const countriesFixture = `[
	{"country":"Afghanistan","countryInfo":{"flag":"https://disease.sh/assets/img/flags/af.png"},
	 "cases":234174,"deaths":7996,"recovered":211080,"population":40754388},
	{"country":"S. Korea","countryInfo":{"flag":"https://disease.sh/assets/img/flags/kr.png"},
	 "cases":34571873,"deaths":35934,"recovered":34535939,"population":51329899},
	{"country":"Albania","countryInfo":{"flag":"https://disease.sh/assets/img/flags/al.png"},
	 "cases":334863,"deaths":3605,"recovered":330233,"population":2866374}
]`

// newProvider starts a stub provider mounted under /v3/covid-19 and returns a
// client pointed at it.
func newProvider(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/v3/covid-19/", http.StripPrefix("/v3/covid-19", handler))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(&http.Client{Timeout: 2 * time.Second}, srv.URL+"/v3/covid-19/", "covid-stats-test")
}

func TestListAllPreservesProviderOrder(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/countries" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != "covid-stats-test" {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, countriesFixture)
	})

	got, err := NewCountryRepository(client).ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := []string{"Afghanistan", "S. Korea", "Albania"}
	if len(got) != len(wantNames) {
		t.Fatalf("expected %d countries, got %d", len(wantNames), len(got))
	}
	for i, name := range wantNames {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
	if got[1].FlagURL != "https://disease.sh/assets/img/flags/kr.png" || got[1].Population != 51329899 {
		t.Fatalf("unexpected snapshot: %+v", got[1])
	}
}

func TestListAllReportsMalformedRecordIndex(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"country":"A","cases":1,"deaths":0,"recovered":0,"population":10},
			{"country":"B","cases":-1,"deaths":0,"recovered":0,"population":10}
		]`)
	})

	_, err := NewCountryRepository(client).ListAll(context.Background())
	var mre *covid.MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if mre.Index != 1 || mre.Field != "cases" {
		t.Fatalf("expected record 1 field cases, got index=%d field=%s", mre.Index, mre.Field)
	}
}

func TestListAllRejectsNonArrayPayload(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"ok"}`)
	})

	_, err := NewCountryRepository(client).ListAll(context.Background())
	var mre *covid.MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestFindByNameThroughRepository(t *testing.T) {
	repo := NewCountryRepository(nil)
	list := []covid.CountrySnapshot{{Name: "USA"}}
	if _, err := repo.FindByName(list, "usa"); !errors.Is(err, covid.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got, err := repo.FindByName(list, "USA"); err != nil || got.Name != "USA" {
		t.Fatalf("expected USA, got %+v (%v)", got, err)
	}
}

func TestFetchTimelineEncodesCountryName(t *testing.T) {
	for _, country := range []string{"South Korea", "Côte d'Ivoire", "Curaçao", "USA"} {
		t.Run(country, func(t *testing.T) {
			client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				// Echo the decoded path segment back as the country name.
				name := strings.TrimPrefix(r.URL.Path, "/historical/")
				if got := r.URL.Query().Get("lastdays"); got != "all" {
					t.Errorf("expected lastdays=all, got %q", got)
				}
				fmt.Fprintf(w, `{"country":%q,"timeline":{"cases":{"1/22/20":1}}}`, name)
			})

			tl, err := NewHistoricalFetcher(client).FetchTimeline(context.Background(), country, covid.RangeAll)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tl.Country != country {
				t.Fatalf("expected server to see %q, got %q", country, tl.Country)
			}
		})
	}
}

func TestFetchTimelineSendsDayRange(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lastdays"); got != "30" {
			t.Errorf("expected lastdays=30, got %q", got)
		}
		fmt.Fprint(w, `{"timeline":{"cases":{"3/1/23":5,"3/2/23":6},"deaths":{"3/1/23":1,"3/2/23":1}}}`)
	})

	tl, err := NewHistoricalFetcher(client).FetchTimeline(context.Background(), "Chile", covid.Days(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Country != "Chile" {
		t.Fatalf("expected fallback country name, got %q", tl.Country)
	}
	if len(tl.Cases) != 2 || len(tl.Deaths) != 2 {
		t.Fatalf("unexpected timeline: %+v", tl)
	}
}

func TestFetchTimelineValidatesInput(t *testing.T) {
	var hits atomic.Int32
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{}`)
	})
	fetcher := NewHistoricalFetcher(client)

	if _, err := fetcher.FetchTimeline(context.Background(), "USA", covid.Range("-3")); !errors.Is(err, covid.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := fetcher.FetchTimeline(context.Background(), "  ", covid.RangeAll); err == nil {
		t.Fatal("expected error for empty country")
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestFetchTimelineMissingCases(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"country":"USA","timeline":{"deaths":{"1/22/20":0}}}`)
	})

	_, err := NewHistoricalFetcher(client).FetchTimeline(context.Background(), "USA", covid.RangeAll)
	var mre *covid.MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestFetchJSONProviderError(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		retry   bool
	}{
		{"not found with message", http.StatusNotFound, `{"message":"Country not found or doesn't have any historical data"}`, "Country not found or doesn't have any historical data", false},
		{"bad gateway plain body", http.StatusBadGateway, "upstream down", "upstream down", true},
		{"empty body", http.StatusInternalServerError, "", "Internal Server Error", true},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, "slow down", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			_, err := client.FetchJSON(context.Background(), "countries", nil)
			var pe *covid.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.StatusCode != tc.status || pe.Message != tc.message {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.message, pe.StatusCode, pe.Message)
			}
			if covid.IsRetryable(err) != tc.retry {
				t.Fatalf("expected retryable=%v", tc.retry)
			}
		})
	}
}

func TestFetchJSONTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewClient(&http.Client{Timeout: time.Second}, base, "")
	_, err := client.FetchJSON(context.Background(), "countries", nil)

	var te *covid.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !covid.IsRetryable(err) {
		t.Fatal("transport errors must be retryable")
	}
}

func TestFetchJSONTimeout(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	client.http.Timeout = 50 * time.Millisecond

	_, err := client.FetchJSON(context.Background(), "countries", nil)
	var te *covid.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError on timeout, got %v", err)
	}
}

func TestFetchJSONRejectsInvalidJSON(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	})

	_, err := client.FetchJSON(context.Background(), "countries", nil)
	var mre *covid.MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestFetchJSONWithoutHTTPClient(t *testing.T) {
	client := NewClient(nil, "", "")
	if _, err := client.FetchJSON(context.Background(), "countries", nil); !errors.Is(err, errNoHTTPClient) {
		t.Fatalf("expected errNoHTTPClient, got %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %s", client.baseURL)
	}
}
