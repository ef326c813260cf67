package logs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeMail struct {
	enabled bool
	err     error
	sent    []string
	subject string
	body    string
}

func (f *fakeMail) Enabled() bool { return f.enabled }

func (f *fakeMail) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	f.subject = subject
	f.body = body
	return nil
}

func writeLogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	return path
}

func TestRunMailsAndTruncates(t *testing.T) {
	path := writeLogFile(t, "line one\nline two\n")
	mail := &fakeMail{enabled: true}
	ex := NewExporter(path, mail, []string{"a@example.com", "b@example.com"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ex.now = func() time.Time { return time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC) }

	ex.Run(context.Background())

	if len(mail.sent) != 2 {
		t.Fatalf("sent to %v, want both addresses", mail.sent)
	}
	if mail.subject != "pulse logs 2026-08-30" {
		t.Fatalf("subject = %q", mail.subject)
	}
	if !strings.Contains(mail.body, "line two") {
		t.Fatalf("body = %q", mail.body)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread log file: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("log file not truncated, %d bytes left", len(b))
	}
}

func TestRunSendFailureKeepsLogFile(t *testing.T) {
	path := writeLogFile(t, "keep me\n")
	mail := &fakeMail{enabled: true, err: errors.New("smtp down")}
	ex := NewExporter(path, mail, []string{"a@example.com"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ex.Run(context.Background())

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread log file: %v", err)
	}
	if string(b) != "keep me\n" {
		t.Fatalf("log file changed after failed send: %q", b)
	}
}

func TestRunSkipsWhenUnconfigured(t *testing.T) {
	path := writeLogFile(t, "content\n")
	mail := &fakeMail{enabled: false}
	ex := NewExporter(path, mail, []string{"a@example.com"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ex.Run(context.Background())

	if len(mail.sent) != 0 {
		t.Fatalf("sent %v with mail disabled", mail.sent)
	}
}

func TestRunSkipsEmptyFile(t *testing.T) {
	path := writeLogFile(t, "")
	mail := &fakeMail{enabled: true}
	ex := NewExporter(path, mail, []string{"a@example.com"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ex.Run(context.Background())

	if len(mail.sent) != 0 {
		t.Fatalf("sent %v for empty file", mail.sent)
	}
}
