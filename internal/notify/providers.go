package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Provider delivers a rendered notification.
type Provider interface {
	Send(recipient, subject, body string) error
}

// LogProvider is the default delivery channel in development: it only
// logs the message.
type LogProvider struct{}

func (LogProvider) Send(recipient, subject, body string) error {
	log.Printf("notify send channel=email recipient=%s subject=%q body=%q", recipient, subject, body)
	return nil
}

// WebhookProvider posts the notification to an external mailer
// endpoint.
type WebhookProvider struct {
	URL    string
	Client *http.Client
}

func NewWebhookProvider(url string) *WebhookProvider {
	return &WebhookProvider{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookProvider) Send(recipient, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"recipient": recipient,
		"subject":   subject,
		"body":      body,
	})
	if err != nil {
		return err
	}
	resp, err := p.Client.Post(p.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
