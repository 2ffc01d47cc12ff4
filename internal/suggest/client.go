// Package suggest calls an external language-model service to propose an
// initial field mapping from the source file's header row.
//
// The suggestion is a convenience only: any subset of roles may come back
// unresolved, and a total failure degrades to the trivial default
// configuration. Nothing here ever blocks an edit or corrupts the live
// configuration; staleness is handled by the session's generation guard.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/quizbank/reshape/internal/core"
)

// Config holds the connection settings for the suggestion service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to an Ollama-compatible generate endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a client, applying defaults for unset settings.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// roleMapping is the JSON shape the model is asked to produce. Absent or
// negative values mean "no match" for that role.
type roleMapping struct {
	Question *int `json:"question"`
	OptionA  *int `json:"optionA"`
	OptionB  *int `json:"optionB"`
	OptionC  *int `json:"optionC"`
	OptionD  *int `json:"optionD"`
	Answer   *int `json:"answer"`
}

// jsonBlock extracts the first brace-delimited block from model output,
// which tends to wrap JSON in prose despite instructions.
var jsonBlock = regexp.MustCompile(`\{[\s\S]*\}`)

// SuggestMapping asks the model to map the given header labels to quiz
// roles and builds a configuration from the answer.
//
// The returned configuration contains a column reference per resolved
// question/option role plus a smart-answer field when the answer column
// was found. An error means the caller should fall back to
// [core.DefaultConfiguration].
func (c *Client) SuggestMapping(ctx context.Context, headers []string) (core.Configuration, error) {
	raw, err := c.generate(ctx, buildPrompt(headers))
	if err != nil {
		return nil, err
	}

	jsonStr := jsonBlock.FindString(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("suggestion: no JSON object in model response")
	}

	var roles roleMapping
	if err := json.Unmarshal([]byte(jsonStr), &roles); err != nil {
		return nil, fmt.Errorf("suggestion: decode model response: %w", err)
	}

	cfg := buildConfiguration(roles, headers)
	if len(cfg) == 0 {
		return nil, fmt.Errorf("suggestion: model resolved no roles")
	}
	return cfg, nil
}

// generate performs one non-streaming completion call.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("suggestion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("suggestion service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var gen generateResponse
	if err := json.Unmarshal(data, &gen); err != nil {
		return "", fmt.Errorf("suggestion service: %w", err)
	}
	return gen.Response, nil
}

// buildPrompt renders the role-matching prompt for one header list.
func buildPrompt(headers []string) string {
	quoted := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = fmt.Sprintf("%d:%q", i, h)
	}

	return fmt.Sprintf(`You are mapping columns of a quiz question bank export.
The columns, as "index:header" pairs, are: %s

Identify which column index holds each role below. Use -1 when no column fits.

Return ONLY a JSON object in this exact shape:
{"question": 0, "optionA": 1, "optionB": 2, "optionC": 3, "optionD": 4, "answer": 5}
`, strings.Join(quoted, ", "))
}

// buildConfiguration turns resolved roles into field descriptors.
// Headers out of the model's range are tolerated; the engine resolves
// indices lazily anyway.
func buildConfiguration(roles roleMapping, headers []string) core.Configuration {
	var cfg core.Configuration

	addColumn := func(idx *int, fallback string) {
		if idx == nil || *idx < 0 {
			return
		}
		d := core.NewField(core.KindColumn, headerLabel(headers, *idx, fallback))
		d.Column = core.Col(*idx)
		cfg.Append(d)
	}

	addColumn(roles.Question, "Question")
	addColumn(roles.OptionA, "Option A")
	addColumn(roles.OptionB, "Option B")
	addColumn(roles.OptionC, "Option C")
	addColumn(roles.OptionD, "Option D")

	if roles.Answer != nil && *roles.Answer >= 0 {
		d := core.NewField(core.KindSmartAnswer, headerLabel(headers, *roles.Answer, "Answer"))
		d.Answer.KeySource = core.Col(*roles.Answer)
		d.Answer.Mode = core.ModeKey
		options := [...]*int{roles.OptionA, roles.OptionB, roles.OptionC, roles.OptionD}
		for i, opt := range options {
			if opt != nil && *opt >= 0 {
				d.Answer.Options[i] = core.Col(*opt)
				d.Answer.Mode = core.ModeContent
			}
		}
		cfg.Append(d)
	}
	return cfg
}

// headerLabel prefers the source header text for the display label,
// falling back to the role name for out-of-range indices or blank
// headers.
func headerLabel(headers []string, idx int, fallback string) string {
	if idx >= 0 && idx < len(headers) {
		if h := strings.TrimSpace(headers[idx]); h != "" {
			return h
		}
	}
	return fallback
}
