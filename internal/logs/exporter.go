package logs

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Sender delivers the exported log text to one address.
type Sender interface {
	Enabled() bool
	Send(to, subject, body string) error
}

// Exporter mails the accumulated log file to the operator addresses and
// truncates it after every address got a copy.
type Exporter struct {
	path string
	mail Sender
	to   []string
	log  *slog.Logger
	now  func() time.Time
}

func NewExporter(path string, mail Sender, to []string, logger *slog.Logger) *Exporter {
	return &Exporter{path: path, mail: mail, to: to, log: logger, now: time.Now}
}

func (e *Exporter) Run(ctx context.Context) {
	if e.path == "" || len(e.to) == 0 || !e.mail.Enabled() {
		e.log.Debug("log export skipped, not configured")
		return
	}
	b, err := os.ReadFile(e.path)
	if err != nil {
		if !os.IsNotExist(err) {
			e.log.Error("read log file", "path", e.path, "err", err)
		}
		return
	}
	if len(b) == 0 {
		return
	}
	subject := "pulse logs " + e.now().UTC().Format("2006-01-02")
	allSent := true
	for _, addr := range e.to {
		if err := e.mail.Send(addr, subject, string(b)); err != nil {
			e.log.Error("log export send failed", "to", addr, "err", err)
			allSent = false
		}
	}
	if !allSent {
		return
	}
	if err := os.Truncate(e.path, 0); err != nil {
		e.log.Warn("truncate log file", "path", e.path, "err", err)
		return
	}
	e.log.Info("log export completed", "bytes", len(b), "recipients", len(e.to))
}
