package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ultra2000/pdfBot/config"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Messenger delivers WhatsApp messages to users. Delivery is best-effort:
// implementations report success as a bool and never abort the caller's
// flow with an error.
type Messenger interface {
	SendText(ctx context.Context, to, body string) bool
	SendMedia(ctx context.Context, to, body, mediaURL string) bool
}

// TwilioMessenger sends WhatsApp messages through the Twilio REST API.
type TwilioMessenger struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioMessenger(cfg *config.TwilioConfig) *TwilioMessenger {
	return &TwilioMessenger{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.WhatsAppNumber,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SendText sends a plain text message.
func (m *TwilioMessenger) SendText(ctx context.Context, to, body string) bool {
	return m.send(ctx, to, body, "")
}

// SendMedia sends a message with one media attachment.
func (m *TwilioMessenger) SendMedia(ctx context.Context, to, body, mediaURL string) bool {
	return m.send(ctx, to, body, mediaURL)
}

func (m *TwilioMessenger) send(ctx context.Context, to, body, mediaURL string) bool {
	form := url.Values{}
	form.Set("From", normalizeWhatsApp(m.from))
	form.Set("To", normalizeWhatsApp(to))
	form.Set("Body", body)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", m.baseURL, m.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("failed to build twilio request", "error", err)
		return false
	}
	req.SetBasicAuth(m.accountSID, m.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		slog.Error("twilio request failed", "to", to, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("twilio rejected message", "to", to, "status", resp.StatusCode, "body", string(detail))
		return false
	}

	slog.Info("whatsapp message sent", "to", to, "has_media", mediaURL != "")
	return true
}

// normalizeWhatsApp ensures the address carries the whatsapp: channel prefix
// Twilio expects.
func normalizeWhatsApp(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
