package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/covid-stats/internal/covid"
	"github.com/i474232898/covid-stats/internal/scheduler"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("lastdays", func(fl validator.FieldLevel) bool {
		_, err := covid.ParseRange(fl.Field().String())
		return err == nil
	})
	return v
}

// ProbeReporter exposes the latest provider probe result.
type ProbeReporter interface {
	Status() scheduler.ProbeStatus
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. probe may be nil.
func RegisterRoutes(app *fiber.App, service *covid.Service, probe ProbeReporter) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "ok",
			"service": "covid-stats",
			"circuit": service.CircuitState(),
		}
		if probe != nil {
			st := probe.Status()
			body["probe"] = st
			if st.ProbesRun > 0 && !st.Healthy() {
				body["status"] = "degraded"
			}
		}
		return c.JSON(body)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/countries", func(c *fiber.Ctx) error {
		countries, err := service.GetAllCountries(c.UserContext())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(countries)
	})

	v1.Get("/countries/:name", func(c *fiber.Ctx) error {
		name, err := countryParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snapshot, err := service.GetCountry(c.UserContext(), name)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(snapshot)
	})

	v1.Get("/countries/:name/history", func(c *fiber.Ctx) error {
		name, q, err := parseSeriesRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		timeline, err := service.GetHistory(c.UserContext(), name, q.rangeValue())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(timeline)
	})

	v1.Get("/countries/:name/chart", func(c *fiber.Ctx) error {
		name, q, err := parseSeriesRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		chart, err := service.GetChart(c.UserContext(), name, q.rangeValue(), q.metric())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(chart)
	})

	v1.Get("/countries/:name/detail", func(c *fiber.Ctx) error {
		name, q, err := parseSeriesRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		detail, err := service.GetCountryDetail(c.UserContext(), name, q.rangeValue())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(detail)
	})
}

// seriesQuery holds query parameters for the history, chart and detail endpoints.
type seriesQuery struct {
	LastDays string `validate:"omitempty,lastdays"`
	Metric   string `validate:"omitempty,oneof=cases deaths recovered"`
}

func (q seriesQuery) rangeValue() covid.Range {
	r, err := covid.ParseRange(q.LastDays)
	if err != nil {
		return covid.RangeAll
	}
	return r
}

func (q seriesQuery) metric() covid.Metric {
	if q.Metric == "" {
		return covid.MetricCases
	}
	return covid.Metric(q.Metric)
}

func parseSeriesRequest(c *fiber.Ctx) (string, seriesQuery, error) {
	name, err := countryParam(c)
	if err != nil {
		return "", seriesQuery{}, err
	}
	q := seriesQuery{
		LastDays: c.Query("lastdays"),
		Metric:   strings.ToLower(c.Query("metric")),
	}
	if err := validate.Struct(q); err != nil {
		return "", seriesQuery{}, err
	}
	return name, q, nil
}

// countryParam returns the decoded :name segment. The copy detaches it from
// the request buffer, which Fiber reuses.
func countryParam(c *fiber.Ctx) (string, error) {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return "", errors.New("country name is not a valid path segment")
	}
	if strings.TrimSpace(name) == "" {
		return "", errors.New("country name is required")
	}
	return strings.Clone(name), nil
}

// toHTTPError maps the covid error taxonomy onto HTTP statuses.
func toHTTPError(err error) error {
	var (
		pe  *covid.ProviderError
		te  *covid.TransportError
		mre *covid.MalformedRecordError
	)
	switch {
	case errors.Is(err, covid.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "country not found")
	case errors.Is(err, covid.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &pe):
		if pe.StatusCode >= http.StatusBadRequest && pe.StatusCode < http.StatusInternalServerError {
			if pe.Message == "" {
				return fiber.NewError(pe.StatusCode, pe.Error())
			}
			return fiber.NewError(pe.StatusCode, pe.Message)
		}
		return fiber.NewError(fiber.StatusBadGateway, pe.Error())
	case errors.Is(err, covid.ErrCircuitOpen):
		return fiber.NewError(fiber.StatusServiceUnavailable, "statistics provider temporarily unavailable")
	case errors.As(err, &te):
		return fiber.NewError(fiber.StatusBadGateway, "statistics provider unreachable")
	case errors.As(err, &mre):
		return fiber.NewError(fiber.StatusBadGateway, "statistics provider returned malformed data")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch statistics")
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
