package notifier

import "log/slog"

// Operator is the escalation channel: internal failures (send errors, job
// panics, storage trouble) are mailed to the administrator addresses so they
// surface even when nothing propagates to end users.
type Operator struct {
	mail *Mailer
	to   []string
	log  *slog.Logger
}

func NewOperator(mail *Mailer, to []string, logger *slog.Logger) *Operator {
	return &Operator{mail: mail, to: to, log: logger}
}

func (o *Operator) Report(subject, body string) {
	if !o.mail.Enabled() || len(o.to) == 0 {
		o.log.Warn("operator channel not configured, dropping report", "subject", subject)
		return
	}
	for _, addr := range o.to {
		if err := o.mail.Send(addr, "[pulse] "+subject, body); err != nil {
			o.log.Error("operator notification failed", "to", addr, "err", err)
		}
	}
}
