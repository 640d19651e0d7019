package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/i474232898/covid-stats/internal/common"
	"github.com/i474232898/covid-stats/internal/config"
	"github.com/i474232898/covid-stats/internal/covid"
	"github.com/i474232898/covid-stats/internal/covid/providers"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "countries":
		err = runCountries(os.Args[2:])
	case "country":
		err = runCountry(os.Args[2:])
	case "chart":
		err = runChart(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "covidctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: covidctl <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  countries   list every country with cases, deaths and recovered")
	fmt.Fprintln(os.Stderr, "  country     show one country (-name, exact match)")
	fmt.Fprintln(os.Stderr, "  chart       print the yearly series (-name, -lastdays, -metric)")
}

func newService() (*covid.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	common.SetupLogger(cfg.LogLevel, true)

	client := providers.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.BaseURL, cfg.UserAgent)
	return covid.NewService(
		providers.NewCountryRepository(client),
		providers.NewHistoricalFetcher(client),
		covid.WithBackoff(covid.BackoffConfig{
			MaxRetries:      cfg.RetryMax,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		}),
	), nil
}

func runCountries(args []string) error {
	fs := flag.NewFlagSet("countries", flag.ExitOnError)
	limit := fs.Int("limit", 0, "print at most n countries (0 = all)")
	fs.Parse(args)

	svc, err := newService()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	countries, err := svc.GetAllCountries(ctx)
	if err != nil {
		return err
	}
	if *limit > 0 && len(countries) > *limit {
		countries = countries[:*limit]
	}
	return writeCountries(os.Stdout, countries)
}

func runCountry(args []string) error {
	fs := flag.NewFlagSet("country", flag.ExitOnError)
	name := fs.String("name", "", "country name, exactly as the provider spells it")
	fs.Parse(args)
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snap, err := svc.GetCountry(ctx, *name)
	if errors.Is(err, covid.ErrNotFound) {
		return fmt.Errorf("no country named %q (names are case-sensitive)", *name)
	}
	if err != nil {
		return err
	}
	return writeCountries(os.Stdout, []covid.CountrySnapshot{snap})
}

func runChart(args []string) error {
	fs := flag.NewFlagSet("chart", flag.ExitOnError)
	name := fs.String("name", "", "country name")
	lastDays := fs.String("lastdays", "all", "\"all\" or a number of trailing days")
	metric := fs.String("metric", "cases", "cases, deaths or recovered")
	fs.Parse(args)
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}
	rng, err := covid.ParseRange(*lastDays)
	if err != nil {
		return err
	}
	m := covid.Metric(strings.ToLower(*metric))
	switch m {
	case covid.MetricCases, covid.MetricDeaths, covid.MetricRecovered:
	default:
		return fmt.Errorf("unknown metric: %s", *metric)
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	chart, err := svc.GetChart(ctx, *name, rng, m)
	if err != nil {
		return err
	}
	return writeChart(os.Stdout, chart)
}

func writeCountries(out io.Writer, countries []covid.CountrySnapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "COUNTRY\tCASES\tDEATHS\tRECOVERED\tPOPULATION\t")
	for _, c := range countries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			c.Name,
			humanize.Comma(c.Cases),
			humanize.Comma(c.Deaths),
			humanize.Comma(c.Recovered),
			humanize.Comma(c.Population),
		)
	}
	return w.Flush()
}

func writeChart(out io.Writer, chart covid.ChartSeries) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i := range chart.Labels {
		label := chart.Labels[i]
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "%s\t%s\n", label, humanize.Comma(chart.Values[i]))
	}
	return w.Flush()
}
