package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Telegram struct {
	Token string
	HTTP  *http.Client
}

func NewTelegram(token string) *Telegram {
	return &Telegram{
		Token: token,
		HTTP:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Enabled() bool {
	return t.Token != ""
}

// Send posts one message to a chat. Missing credentials come back as a plain
// error so callers can log and move on.
func (t *Telegram) Send(ctx context.Context, chatID, msg string) error {
	if !t.Enabled() {
		return fmt.Errorf("telegram not configured")
	}
	if chatID == "" {
		return fmt.Errorf("telegram chat id empty")
	}
	payload := map[string]any{"chat_id": chatID, "text": msg, "disable_web_page_preview": true}
	b, _ := json.Marshal(payload)
	u := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := t.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	resp, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	if res.StatusCode >= 300 {
		return fmt.Errorf("telegram status %d: %s", res.StatusCode, string(resp))
	}
	return nil
}
