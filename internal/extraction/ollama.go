package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Ollama implements the Extractor interface against a local Ollama server.
// Vision models such as llava or qwen2-vl work for the image pass; any chat
// model handles reply parsing.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Extractor instance.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models can be slow locally
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Extract analyzes a receipt image and returns the fields the model could read.
func (o *Ollama) Extract(ctx context.Context, imageData []byte, contentType string, locale string) (Fields, error) {
	pngData, err := prepareImage(imageData, contentType)
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Err: err}
	}

	text, err := o.chat(ctx, []ollamaMessage{
		{
			Role:    "system",
			Content: "You are an expert at reading and extracting information from receipts and invoices.",
		},
		{
			Role:    "user",
			Content: extractPromptFor(locale),
			Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
		},
	})
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Err: err}
	}

	fields, err := parseExtraction(text)
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Raw: text, Err: err}
	}
	return fields, nil
}

// ParseReply interprets a free-text answer for one field, degrading to the
// cleaned literal answer when the local model is unreachable.
func (o *Ollama) ParseReply(ctx context.Context, field Field, text string, current Fields) (string, error) {
	cleaned := cleanReply(field, text)
	if cleaned == "" {
		return "", &ParseError{Field: field, Text: text}
	}

	raw, err := o.chat(ctx, []ollamaMessage{
		{Role: "user", Content: replyParsePrompt(field, cleaned, current)},
	})
	if err != nil {
		slog.Warn("Reply parse call failed, keeping literal answer", "field", field, "error", err)
		return cleaned, nil
	}

	value, ok := parseReplyValue(raw)
	if !ok {
		return "", &ParseError{Field: field, Text: text}
	}
	return value, nil
}

// chat performs one non-streaming chat call and returns the response text.
func (o *Ollama) chat(ctx context.Context, messages []ollamaMessage) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    o.model,
		Stream:   false,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// Close closes the Ollama client (no-op for HTTP client).
func (o *Ollama) Close() error {
	return nil
}
