package notifier

import (
	"net/smtp"
	"strings"
	"testing"
)

func TestMailerSend(t *testing.T) {
	m := NewMailer("smtp.example.com", 587, "user", "pass", "pulse@example.com")
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	m.SendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	if err := m.Send("ops@example.com", "alert", "body text"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "pulse@example.com" {
		t.Fatalf("addr=%s from=%s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ops@example.com" {
		t.Fatalf("to = %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: alert\r\n") || !strings.HasSuffix(gotMsg, "body text") {
		t.Fatalf("msg = %q", gotMsg)
	}
}

func TestMailerNotConfigured(t *testing.T) {
	m := NewMailer("", 0, "", "", "")
	if m.Enabled() {
		t.Fatal("empty mailer reported as enabled")
	}
	if err := m.Send("ops@example.com", "s", "b"); err == nil {
		t.Fatal("expected error when smtp not configured")
	}
}
