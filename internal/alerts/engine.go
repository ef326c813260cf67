package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulse/internal/db"
	"pulse/internal/metrics"
	"pulse/internal/models"
)

// ShouldNotify reports whether a recipient may be alerted again. The boundary
// is inclusive: exactly one cooldown elapsed counts as eligible.
func ShouldNotify(lastAlertAt *time.Time, now time.Time, cooldown time.Duration) bool {
	if lastAlertAt == nil {
		return true
	}
	return now.Sub(*lastAlertAt) >= cooldown
}

// EmailSender delivers one message to one address. Implementations must not
// panic on transport trouble; they return an error instead.
type EmailSender interface {
	Enabled() bool
	Send(to, subject, body string) error
}

// ChatSender delivers one message to one chat.
type ChatSender interface {
	Enabled() bool
	Send(ctx context.Context, chatID, msg string) error
}

// OperatorReporter is the escalation path for delivery failures.
type OperatorReporter interface {
	Report(subject, body string)
}

const maxSendAttempts = 3

// Engine evaluates fresh samples against the configured temperature limit and
// fans alerts out to every cooldown-eligible recipient.
type Engine struct {
	repo     *db.Repository
	mail     EmailSender
	chat     ChatSender
	operator OperatorReporter
	log      *slog.Logger

	now        func() time.Time
	retryDelay time.Duration
}

func NewEngine(repo *db.Repository, mail EmailSender, chat ChatSender, operator OperatorReporter, logger *slog.Logger) *Engine {
	return &Engine{
		repo:       repo,
		mail:       mail,
		chat:       chat,
		operator:   operator,
		log:        logger,
		now:        time.Now,
		retryDelay: 300 * time.Millisecond,
	}
}

// ProcessSample runs the threshold check for one sample. A sample without a
// temperature reading never reaches the comparison.
func (e *Engine) ProcessSample(ctx context.Context, sample models.MetricSample) {
	if sample.CPUTempC == nil {
		return
	}
	settings, err := e.repo.LoadSettings(ctx)
	if err != nil {
		e.log.Error("load settings", "err", err)
		return
	}
	temp := *sample.CPUTempC
	if temp < settings.CPUTempLimit {
		return
	}
	title := "CPU temperature alert"
	body := fmt.Sprintf("CPU temperature %.1f°C exceeded the configured limit of %.1f°C at %s.",
		temp, settings.CPUTempLimit, sample.TS.Format(time.RFC3339))
	e.NotifyAll(ctx, title, body, settings.AlertCooldown)
}

// NotifyAll delivers one alert to every eligible recipient over each channel
// the recipient enabled. A failure for one recipient never blocks the rest;
// last_alert_at moves only after at least one confirmed send.
func (e *Engine) NotifyAll(ctx context.Context, title, body string, cooldown time.Duration) {
	recipients, err := e.repo.ListAlertRecipients(ctx)
	if err != nil {
		e.log.Error("list recipients", "err", err)
		return
	}
	now := e.now().UTC()
	for _, r := range recipients {
		if !ShouldNotify(r.LastAlertAt, now, cooldown) {
			e.log.Info("alert suppressed by cooldown", "recipient", r.Email, "cooldown", cooldown)
			continue
		}
		delivered := false
		if r.EmailAlerts {
			if !e.mail.Enabled() {
				e.log.Warn("email alerts enabled but smtp not configured", "recipient", r.Email)
			} else if e.sendWithRetry(ctx, r.ID, "email", func() error {
				return e.mail.Send(r.Email, title, body)
			}) {
				delivered = true
			} else {
				e.operator.Report("alert delivery failed (email)",
					fmt.Sprintf("Failed to deliver %q to %s by email.", title, r.Email))
			}
		}
		if r.TelegramAlerts && r.TelegramChatID != "" {
			if !e.chat.Enabled() {
				e.log.Warn("telegram alerts enabled but bot not configured", "recipient", r.Email)
			} else if e.sendWithRetry(ctx, r.ID, "telegram", func() error {
				return e.chat.Send(ctx, r.TelegramChatID, title+"\n"+body)
			}) {
				delivered = true
			} else {
				e.operator.Report("alert delivery failed (telegram)",
					fmt.Sprintf("Failed to deliver %q to %s via telegram chat %s.", title, r.Email, r.TelegramChatID))
			}
		}
		if delivered {
			if err := e.repo.UpdateRecipientLastAlert(ctx, r.ID, now); err != nil {
				e.log.Error("update last alert time", "err", err, "recipient", r.Email)
			}
		}
	}
}

func (e *Engine) sendWithRetry(ctx context.Context, recipientID int64, channel string, send func() error) bool {
	attempts := 0
	var err error
	for attempts < maxSendAttempts {
		attempts++
		err = send()
		if err == nil {
			now := e.now().UTC()
			_ = e.repo.InsertNotificationEvent(ctx, recipientID, channel, "sent", attempts, "", &now)
			metrics.AlertsSent.WithLabelValues(channel).Inc()
			return true
		}
		if attempts == maxSendAttempts || !e.waitRetry(ctx, attempts) {
			break
		}
	}
	// The audit row outlives a canceled context.
	_ = e.repo.InsertNotificationEvent(context.WithoutCancel(ctx), recipientID, channel, "failed", attempts, err.Error(), nil)
	metrics.AlertSendFailures.WithLabelValues(channel).Inc()
	e.log.Warn("alert send failed", "channel", channel, "attempts", attempts, "err", err)
	return false
}

// waitRetry blocks for the attempt's linear backoff and reports false when
// the context is canceled first, ending the retry loop.
func (e *Engine) waitRetry(ctx context.Context, attempts int) bool {
	t := time.NewTimer(time.Duration(attempts) * e.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
