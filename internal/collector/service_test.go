package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"pulse/internal/db"
	"pulse/internal/models"
)

type fakeSampler struct {
	sample models.MetricSample
	err    error
}

func (f *fakeSampler) Collect(ctx context.Context) (models.MetricSample, error) {
	return f.sample, f.err
}

type recordingAlerter struct {
	samples []models.MetricSample
}

func (r *recordingAlerter) ProcessSample(ctx context.Context, sample models.MetricSample) {
	r.samples = append(r.samples, sample)
}

func newTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	sqldb, err := db.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	if err := db.Migrate(sqldb); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db.NewRepository(sqldb)
}

func TestTickStoresEvictsAndForwardsSample(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// One stale row from before the retention window.
	if err := repo.InsertSample(ctx, models.MetricSample{TS: now.Add(-25 * time.Hour), CPUPct: 5}); err != nil {
		t.Fatalf("seed stale sample: %v", err)
	}

	temp := 75.0
	sampler := &fakeSampler{sample: models.MetricSample{
		TS: now, CPUPct: 30.5, RAMPct: 40.1, DiskPct: 50.2, NetSentMB: 10, NetRecvMB: 20, CPUTempC: &temp,
	}}
	alerter := &recordingAlerter{}
	svc := NewService(repo, sampler, alerter, 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }

	svc.Tick(ctx)

	samples, err := repo.SamplesInRange(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("stored samples = %d, want 1 after eviction", len(samples))
	}
	if samples[0].CPUPct != 30.5 || samples[0].CPUTempC == nil || *samples[0].CPUTempC != 75.0 {
		t.Fatalf("stored sample = %+v", samples[0])
	}
	if len(alerter.samples) != 1 || alerter.samples[0].CPUPct != 30.5 {
		t.Fatalf("alerter got %d samples, want the fresh one", len(alerter.samples))
	}
}

func TestTickCollectFailureSkipsStoreAndAlerts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sampler := &fakeSampler{err: errors.New("os api unavailable")}
	alerter := &recordingAlerter{}
	svc := NewService(repo, sampler, alerter, 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc.Tick(ctx)

	samples, err := repo.SamplesInRange(ctx, time.Time{}, time.Now().UTC())
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("stored samples = %d, want 0", len(samples))
	}
	if len(alerter.samples) != 0 {
		t.Fatalf("alerter invoked on failed tick")
	}
}

func TestTickNeverEvictsItsOwnSample(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	sampler := &fakeSampler{sample: models.MetricSample{TS: now, CPUPct: 1}}
	svc := NewService(repo, sampler, &recordingAlerter{}, time.Nanosecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }

	svc.Tick(ctx)

	samples, err := repo.SamplesInRange(ctx, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("stored samples = %d, want the tick's own sample kept", len(samples))
	}
}
