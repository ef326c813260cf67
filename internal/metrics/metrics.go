package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SamplesCollected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_samples_total",
		Help: "Number of host metric samples written to the store",
	})

	SampleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_sample_errors_total",
		Help: "Number of sampling ticks that failed to produce a sample",
	})

	SamplesEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_evicted_samples_total",
		Help: "Number of samples removed by the retention sweep",
	})

	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_tick_duration_seconds",
		Help:    "Duration of one collect-store-alert pipeline run",
		Buckets: prometheus.DefBuckets,
	})

	AlertsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_alerts_sent_total",
		Help: "Number of alert notifications delivered per channel",
	}, []string{"channel"})

	AlertSendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_alert_send_failures_total",
		Help: "Number of alert notifications that exhausted retries per channel",
	}, []string{"channel"})

	JobFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_job_failures_total",
		Help: "Number of scheduled job runs that panicked",
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(
		SamplesCollected, SampleErrors, SamplesEvicted,
		TickDuration,
		AlertsSent, AlertSendFailures,
		JobFailures,
	)
}
