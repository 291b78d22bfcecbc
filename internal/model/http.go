package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

// HTTPConfig holds settings for the OpenAI-compatible HTTP agent.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration

	// Per-million-token prices in micro-USD, used to derive call cost.
	InputCostPerMTok  int64
	OutputCostPerMTok int64

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// HTTPAgent implements Agent over an OpenAI-compatible chat/completions
// endpoint with vision message parts.
type HTTPAgent struct {
	cfg        HTTPConfig
	httpClient *http.Client
	logger     *observability.Logger
}

// NewHTTPAgent creates an HTTP agent. Zero retry/backoff settings fall
// back to defaults.
func NewHTTPAgent(cfg HTTPConfig, logger *observability.Logger) *HTTPAgent {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &HTTPAgent{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Classify asks the model to rank the candidates against the pages.
func (a *HTTPAgent) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("classify: no candidates")
	}

	system := "You are a document classifier. You will see page images of a document " +
		"and a list of candidate document types. Pick the single best matching type " +
		"and rank any other plausible candidates. " +
		`Return ONLY JSON: {"type_code": "<code or empty string if none match>", ` +
		`"confidence": <0.0-1.0>, "reasoning": "<one sentence>", ` +
		`"alternatives": [{"type_code": "<code>", "confidence": <0.0-1.0>}]}`
	if req.ExpectedType != "" {
		system = "You are a document classifier. You will see page images of a document " +
			"and an expected document type. Decide whether the document matches that type. " +
			`Return ONLY JSON: {"type_code": "<the expected code if it matches, empty string if not>", ` +
			`"confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`
	}

	var b strings.Builder
	b.WriteString("Candidate document types:\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- code=%s name=%q", c.Code, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, " description=%q", c.Description)
		}
		if c.VisualDescription != "" {
			fmt.Fprintf(&b, " visual=%q", c.VisualDescription)
		}
		if len(c.VisualCues) > 0 {
			fmt.Fprintf(&b, " cues=%s", strings.Join(c.VisualCues, "; "))
		}
		if len(c.SampleKeywords) > 0 {
			fmt.Fprintf(&b, " keywords=%s", strings.Join(c.SampleKeywords, ", "))
		}
		if c.Instructions != "" {
			fmt.Fprintf(&b, " instructions=%q", c.Instructions)
		}
		b.WriteString("\n")
	}
	if req.ExpectedType != "" {
		fmt.Fprintf(&b, "\nHint: the expected document type is %q.", req.ExpectedType)
	}
	b.WriteString("\nClassify the attached pages.")

	content, usage, err := a.chat(ctx, system, b.String(), req.Pages)
	if err != nil {
		return nil, err
	}

	var out struct {
		TypeCode     string  `json:"type_code"`
		Confidence   float64 `json:"confidence"`
		Reasoning    string  `json:"reasoning"`
		Alternatives []struct {
			TypeCode   string  `json:"type_code"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}

	alternatives := make([]RankedType, 0, len(out.Alternatives))
	for _, alt := range out.Alternatives {
		if alt.TypeCode == "" || alt.TypeCode == out.TypeCode {
			continue
		}
		alternatives = append(alternatives, RankedType{
			TypeCode:   alt.TypeCode,
			Confidence: clamp01(alt.Confidence),
		})
	}

	return &ClassifyResult{
		TypeCode:     out.TypeCode,
		Confidence:   clamp01(out.Confidence),
		Reasoning:    out.Reasoning,
		Alternatives: alternatives,
		Usage:        usage,
	}, nil
}

// Extract asks the model to pull the requested fields from the pages.
func (a *HTTPAgent) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	system := "You are a document data extractor. Extract the listed fields from the " +
		"attached page images. Return ONLY JSON of the form " +
		`{"fields": {"<code>": <value>}, "confidences": {"<code>": <0.0-1.0>}}. ` +
		"Omit fields that are not present. Use ISO-8601 dates (YYYY-MM-DD). " +
		"Table fields are arrays of row objects keyed by column code. Never output null."

	var b strings.Builder
	b.WriteString("Fields to extract:\n")
	writeFieldSpecs(&b, req.Fields, "")
	if req.Instructions != "" {
		b.WriteString("\nAdditional instructions: ")
		b.WriteString(req.Instructions)
	}

	content, usage, err := a.chat(ctx, system, b.String(), req.Pages)
	if err != nil {
		return nil, err
	}

	var out struct {
		Fields      map[string]any     `json:"fields"`
		Confidences map[string]float64 `json:"confidences"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	if out.Confidences == nil {
		out.Confidences = map[string]float64{}
	}
	for code, conf := range out.Confidences {
		out.Confidences[code] = clamp01(conf)
	}

	return &ExtractResult{
		Fields:      out.Fields,
		Confidences: out.Confidences,
		RawContent:  []byte(content),
		Usage:       usage,
	}, nil
}

// AnswerVisualQuestion asks the model a question about the pages and
// compares the answer to the expected outcome.
func (a *HTTPAgent) AnswerVisualQuestion(ctx context.Context, req VisualRequest) (*VisualAnswer, error) {
	system := "You are a document inspector answering questions about page images. " +
		`Return ONLY JSON: {"answer": "<short answer>", "passed": <true|false>, ` +
		`"confidence": <0.0-1.0>}. Set "passed" to whether the observed document ` +
		"satisfies the expected condition."

	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(req.Question)
	if req.Expected != "" {
		b.WriteString("\nExpected: ")
		b.WriteString(req.Expected)
	}

	content, usage, err := a.chat(ctx, system, b.String(), req.Pages)
	if err != nil {
		return nil, err
	}

	var out struct {
		Answer     string  `json:"answer"`
		Passed     bool    `json:"passed"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("decode visual answer: %w", err)
	}

	return &VisualAnswer{
		Answer:     out.Answer,
		Passed:     out.Passed,
		Confidence: clamp01(out.Confidence),
		Usage:      usage,
	}, nil
}

// chat sends one vision chat/completions request and returns the
// message content plus usage.
func (a *HTTPAgent) chat(ctx context.Context, system, user string, pages []preprocess.PageImage) (string, Usage, error) {
	start := time.Now()

	userContent := []map[string]any{
		{"type": "text", "text": user},
	}
	for _, p := range pages {
		dataURL, err := encodePageImage(p.ImagePath)
		if err != nil {
			return "", Usage{}, fmt.Errorf("encode page %d: %w", p.PageNumber, err)
		}
		userContent = append(userContent, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL},
		})
	}

	body := map[string]any{
		"model":           a.cfg.Model,
		"temperature":     a.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": userContent},
		},
	}

	raw, err := a.postWithRetry(ctx, strings.TrimRight(a.cfg.BaseURL, "/")+"/chat/completions", body)
	if err != nil {
		return "", Usage{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
			TotalTokens      int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", Usage{}, fmt.Errorf("decode model response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no choices in model response")
	}

	usage := Usage{
		Tokens: cc.Usage.TotalTokens,
		CostMicroUSD: cc.Usage.PromptTokens*a.cfg.InputCostPerMTok/1_000_000 +
			cc.Usage.CompletionTokens*a.cfg.OutputCostPerMTok/1_000_000,
	}

	a.logger.Debug().
		Str("model", a.cfg.Model).
		Int("pages", len(pages)).
		Int64("tokens", usage.Tokens).
		Int64("cost_micro_usd", usage.CostMicroUSD).
		Dur("elapsed", time.Since(start)).
		Msg("Model call completed")

	return strings.TrimSpace(cc.Choices[0].Message.Content), usage, nil
}

// postWithRetry posts JSON with exponential backoff on retryable
// status codes.
func (a *HTTPAgent) postWithRetry(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		raw, status, err := a.post(ctx, url, payload)
		if err == nil && status >= 200 && status < 300 {
			return raw, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("model API status %d: %s", status, truncate(string(raw), 200))
			if !retryableStatus(status) {
				return nil, lastErr
			}
		}

		if attempt == a.cfg.MaxRetries {
			break
		}

		backoff := backoffFor(attempt, a.cfg.InitialBackoff, a.cfg.MaxBackoff)
		a.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", a.cfg.MaxRetries).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Model call failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("model call failed after %d retries: %w", a.cfg.MaxRetries, lastErr)
}

func (a *HTTPAgent) post(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("model http error: %w", err)
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read model response: %w", err)
	}
	return buf.Bytes(), resp.StatusCode, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func backoffFor(attempt int, initial, max time.Duration) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	return time.Duration(backoff)
}

func encodePageImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mimeType := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".webp":
		mimeType = "image/webp"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func writeFieldSpecs(b *strings.Builder, fields []FieldSpec, indent string) {
	for _, f := range fields {
		fmt.Fprintf(b, "%s- code=%s name=%q type=%s", indent, f.Code, f.DisplayName, f.FieldType)
		if f.Required {
			b.WriteString(" required")
		}
		if f.Description != "" {
			fmt.Fprintf(b, " description=%q", f.Description)
		}
		if f.LocationHint != "" {
			fmt.Fprintf(b, " location=%q", f.LocationHint)
		}
		b.WriteString("\n")
		if len(f.Columns) > 0 {
			fmt.Fprintf(b, "%s  columns:\n", indent)
			writeFieldSpecs(b, f.Columns, indent+"  ")
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
