package models

import "time"

// MetricSample is one immutable row of the host time series, produced once
// per sampling tick. CPUTempC is nil when the host exposes no usable
// temperature sensor; it never carries a sentinel value.
type MetricSample struct {
	TS        time.Time
	CPUPct    float64
	RAMPct    float64
	DiskPct   float64
	NetSentMB float64
	NetRecvMB float64
	CPUTempC  *float64
}

// Recipient is a user eligible for threshold alerts. LastAlertAt is set only
// after a confirmed send and never moves backwards.
type Recipient struct {
	ID             int64
	Email          string
	EmailAlerts    bool
	TelegramChatID string
	TelegramAlerts bool
	LastAlertAt    *time.Time
}

// Settings holds the runtime-mutable alerting configuration. Operators can
// change both values while the sampler keeps running.
type Settings struct {
	CPUTempLimit  float64
	AlertCooldown time.Duration
}
