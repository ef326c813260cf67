package collector

import (
	"context"
	"log/slog"
	"time"

	"pulse/internal/db"
	"pulse/internal/metrics"
	"pulse/internal/models"
)

// Sampler reads host counters into one sample.
type Sampler interface {
	Collect(ctx context.Context) (models.MetricSample, error)
}

// Alerter is handed every freshly stored sample.
type Alerter interface {
	ProcessSample(ctx context.Context, sample models.MetricSample)
}

// Service is the sampling pipeline: collect, append, evict, alert. One tick
// is one sequential run; the scheduler never runs two ticks concurrently.
type Service struct {
	repo   *db.Repository
	host   Sampler
	alerts Alerter
	window time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func NewService(repo *db.Repository, host Sampler, alerts Alerter, window time.Duration, logger *slog.Logger) *Service {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Service{repo: repo, host: host, alerts: alerts, window: window, log: logger, now: time.Now}
}

func (s *Service) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	sample, err := s.host.Collect(ctx)
	if err != nil {
		s.log.Warn("collect sample", "err", err)
		metrics.SampleErrors.Inc()
		return
	}
	// One transaction per tick: the append and the eviction land together,
	// and the eviction orders after the append so a tick can never evict
	// its own sample.
	cutoff := s.now().UTC().Add(-s.window)
	evicted, err := s.repo.AppendAndEvict(ctx, sample, cutoff)
	if err != nil {
		s.log.Error("store sample", "err", err)
		return
	}
	metrics.SamplesCollected.Inc()
	if evicted > 0 {
		metrics.SamplesEvicted.Add(float64(evicted))
		s.log.Info("evicted old samples", "count", evicted, "cutoff", cutoff)
	}

	s.alerts.ProcessSample(ctx, sample)
}
