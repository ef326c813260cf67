package notifier

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestTelegramSend(t *testing.T) {
	tg := NewTelegram("token")
	var gotBody string
	tg.HTTP = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"ok":true}`))}, nil
	})}

	if err := tg.Send(context.Background(), "42", "hot"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(gotBody, `"chat_id":"42"`) || !strings.Contains(gotBody, `"text":"hot"`) {
		t.Fatalf("payload = %s", gotBody)
	}
}

func TestTelegramSendAPIError(t *testing.T) {
	tg := NewTelegram("token")
	tg.HTTP = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader(`{"ok":false}`))}, nil
	})}

	err := tg.Send(context.Background(), "42", "hot")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestTelegramNotConfigured(t *testing.T) {
	tg := NewTelegram("")
	if tg.Enabled() {
		t.Fatal("empty token reported as enabled")
	}
	if err := tg.Send(context.Background(), "42", "hot"); err == nil {
		t.Fatal("expected error when token missing")
	}
}
