package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/covid-stats/internal/covid"
)

// ProbeStatus is the outcome of the most recent provider probe.
type ProbeStatus struct {
	LastRun      time.Time `json:"lastRun,omitempty"`
	LastSuccess  time.Time `json:"lastSuccess,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	CountryCount int       `json:"countryCount"`
	ProbesRun    int       `json:"probesRun"`
	ProbesFailed int       `json:"probesFailed"`
}

// Healthy is true once a probe has succeeded and the latest one did not fail.
func (p ProbeStatus) Healthy() bool {
	return !p.LastSuccess.IsZero() && p.LastError == ""
}

// Lister is the part of the service the probe needs.
type Lister interface {
	GetAllCountries(ctx context.Context) ([]covid.CountrySnapshot, error)
}

// Scheduler periodically checks that the provider answers with a usable country list.
// Nothing fetched is retained beyond the counters in ProbeStatus.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Lister
	interval  time.Duration
	timeout   time.Duration

	mu     sync.RWMutex
	status ProbeStatus
}

// New creates a new Scheduler.
func New(interval time.Duration, service Lister) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the probe job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Info().Msg("scheduler: probe interval is zero; provider probe disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.Probe)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Probe runs one provider check and records the result.
func (s *Scheduler) Probe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now().UTC()
	countries, err := s.service.GetAllCountries(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastRun = started
	s.status.ProbesRun++
	if err != nil {
		s.status.ProbesFailed++
		s.status.LastError = err.Error()
		log.Err(err).Msg("scheduler: provider probe failed")
		return
	}
	s.status.LastSuccess = started
	s.status.LastError = ""
	s.status.CountryCount = len(countries)
	log.Debug().Int("countries", len(countries)).Dur("took", time.Since(started)).Msg("scheduler: provider probe ok")
}

// Status returns a copy of the latest probe outcome.
func (s *Scheduler) Status() ProbeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
