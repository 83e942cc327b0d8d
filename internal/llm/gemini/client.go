package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/docbatch/internal/llm"
)

const DefaultModel = "gemini-1.5-flash"

// Config for the Gemini client.
type Config struct {
	APIKey          string // if empty, falls back to env GEMINI_API_KEY
	Model           string
	Temperature     float32
	MaxContentChars int
}

// generateFunc sends one prompt and returns the concatenated text parts of the first candidate.
type generateFunc func(ctx context.Context, system, user string) (string, error)

type Client struct {
	cfg      Config
	client   *genai.Client
	generate generateFunc
	logger   *slog.Logger
}

var _ llm.DataExtractor = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c := &Client{cfg: cfg, client: gc, logger: logger}
	c.generate = c.generateContent
	return c, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) generateContent(ctx context.Context, system, user string) (string, error) {
	m := c.client.GenerativeModel(c.cfg.Model)
	m.SetTemperature(c.cfg.Temperature)
	m.ResponseMIMEType = "application/json"
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// ExtractData implements llm.DataExtractor.
func (c *Client) ExtractData(ctx context.Context, req llm.ExtractRequest) (llm.ExtractedData, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"file", req.FileName,
		"text_len", len(req.Content),
		"has_template", req.Template != "",
	)

	schema := llm.BuildExtractionSchema(req.TemplateFields)
	text, err := c.generate(ctx, llm.SystemPrompt, llm.BuildUserPrompt(req, c.cfg.MaxContentChars))
	if err != nil {
		c.logger.Error("llm.extract.generate_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractedData{}, nil, err
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Error("llm.extract.empty_reply", "req_id", rid)
		return llm.ExtractedData{}, nil, fmt.Errorf("gemini returned no content")
	}

	out := llm.ParseResponse(text, schema, c.logger)
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"file", req.FileName,
		"rows", len(out.Data),
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, []byte(text), nil
}
