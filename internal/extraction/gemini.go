package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	extractTimeout = 30 * time.Second
	replyTimeout   = 15 * time.Second
)

// Gemini implements the Extractor interface using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Extract analyzes a receipt image and returns the fields Gemini could read.
func (g *Gemini) Extract(ctx context.Context, imageData []byte, contentType string, locale string) (Fields, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	pngData, err := prepareImage(imageData, contentType)
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Err: err}
	}

	// genai.ImageData expects the format suffix, not the full MIME type.
	// prepareImage always hands back PNG.
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(extractPromptFor(locale)),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Err: fmt.Errorf("generating content: %w", err)}
	}

	text, err := responseText(resp)
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Err: err}
	}

	fields, err := parseExtraction(text)
	if err != nil {
		return Fields{}, &ExtractionError{Op: "extract", Raw: text, Err: err}
	}
	return fields, nil
}

// ParseReply interprets a free-text answer for one field. Transport failures
// degrade to the submitter's cleaned literal answer so the conversation keeps
// moving; only a reply the model judges unresponsive yields a ParseError.
func (g *Gemini) ParseReply(ctx context.Context, field Field, text string, current Fields) (string, error) {
	cleaned := cleanReply(field, text)
	if cleaned == "" {
		return "", &ParseError{Field: field, Text: text}
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(replyParsePrompt(field, cleaned, current)))
	if err != nil {
		slog.Warn("Reply parse call failed, keeping literal answer", "field", field, "error", err)
		return cleaned, nil
	}

	raw, err := responseText(resp)
	if err != nil {
		slog.Warn("Reply parse returned no text, keeping literal answer", "field", field, "error", err)
		return cleaned, nil
	}

	value, ok := parseReplyValue(raw)
	if !ok {
		return "", &ParseError{Field: field, Text: text}
	}
	return value, nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
