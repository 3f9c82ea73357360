package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultKapsoURL is the hosted Kapso API base.
const DefaultKapsoURL = "https://app.kapso.ai/api/v1"

// Sender delivers outbound WhatsApp messages through the Kapso API.
type Sender struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSender creates a Sender. An empty baseURL uses the hosted API.
func NewSender(baseURL string, apiKey string) *Sender {
	if baseURL == "" {
		baseURL = DefaultKapsoURL
	}
	return &Sender{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type outboundMessage struct {
	WhatsappMessage struct {
		Phone       string `json:"phone"`
		MessageType string `json:"message_type"`
		Text        struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"whatsapp_message"`
}

// SendText sends one text message to a phone number.
func (s *Sender) SendText(ctx context.Context, phone string, body string) error {
	var msg outboundMessage
	msg.WhatsappMessage.Phone = phone
	msg.WhatsappMessage.MessageType = "text"
	msg.WhatsappMessage.Text.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/whatsapp_messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("kapso returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Deliver adapts SendText to the conversation engine's outbound signature.
// Delivery failures are logged; the engine never blocks on them.
func (s *Sender) Deliver(submitterID string, text string) {
	if err := s.SendText(context.Background(), submitterID, text); err != nil {
		slog.Error("Failed to deliver message", "to", submitterID, "error", err)
	}
}
