package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPromptTemplate = `You are a scope creep detection assistant for freelancers. Analyze client requests and determine if they fall within the original project scope.

You will receive:
1. A list of scope items (the agreed-upon work)
2. A client request/message
3. Optional project context

Respond with a JSON object containing:
- classification: One of "in_scope", "out_of_scope", "clarification_needed", or "revision"
- confidence: A float from 0.0 to 1.0
- reasoning: A brief explanation
- matched_scope_item_index: The 0-based index of the matching scope item, or null
- suggested_action: What the freelancer should do
- scope_creep_indicators: Array of detected scope creep phrases

Classification guidelines:
- "in_scope": Request falls within agreed scope items
- "out_of_scope": Request asks for work not covered by scope
- "clarification_needed": Client is asking questions
- "revision": Client wants to change something in scope

Scope creep phrases: %s

Respond ONLY with valid JSON.`

// gptResult mirrors the JSON object the model is asked for. Pointer fields
// let the parser tell a missing key from a zero value.
type gptResult struct {
	Classification        *string  `json:"classification"`
	Confidence            *float64 `json:"confidence"`
	Reasoning             *string  `json:"reasoning"`
	MatchedScopeItemIndex *int     `json:"matched_scope_item_index"`
	SuggestedAction       *string  `json:"suggested_action"`
	ScopeCreepIndicators  []string `json:"scope_creep_indicators"`
}

// GPTClassifier asks an OpenAI-compatible chat model for a verdict and falls
// back to the rule classifier whenever the model cannot give a valid one.
type GPTClassifier struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float32
	timeout      time.Duration
	systemPrompt string
	fallback     *RuleClassifier
	logger       *zap.Logger
}

func NewGPTClassifier(cfg Config, fallback *RuleClassifier, logger *zap.Logger) *GPTClassifier {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &GPTClassifier{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  requestTemperature(*cfg.Temperature),
		timeout:      cfg.Timeout,
		systemPrompt: fmt.Sprintf(systemPromptTemplate, quotePhrases(fallback.Lexicons().ScopeCreep)),
		fallback:     fallback,
		logger:       logger,
	}
}

// requestTemperature maps t to the value sent on the wire. The client omits a
// zero temperature, so zero is sent as the smallest positive float32.
func requestTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func (c *GPTClassifier) Classify(ctx context.Context, req Request) Result {
	result, err := c.classify(ctx, req)
	if err != nil {
		c.logFailure(ctx, err)
		return c.fallback.Analyze(req)
	}
	return result
}

func (c *GPTClassifier) classify(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	result, err := parseGPTResult(content, len(req.ScopeItems))
	if err != nil {
		c.logger.Debug("Unusable GPT response", zap.String("response", content))
		return Result{}, err
	}

	c.logger.Debug("GPT classification",
		zap.String("model", c.model),
		zap.String("classification", string(result.Classification)),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

func (c *GPTClassifier) logFailure(ctx context.Context, err error) {
	fields := []zap.Field{zap.Error(err), zap.String("model", c.model)}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		fields = append(fields, zap.Int("status", apiErr.HTTPStatusCode))
	case errors.As(err, &reqErr):
		fields = append(fields, zap.Int("status", reqErr.HTTPStatusCode))
	case errors.Is(err, context.DeadlineExceeded):
		fields = append(fields, zap.Duration("timeout", c.timeout))
	}
	if ctx.Err() != nil {
		fields = append(fields, zap.Bool("caller_cancelled", true))
	}

	c.logger.Warn("GPT analysis failed, falling back to rules", fields...)
}

func buildUserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("## Project Scope Items:\n")
	if len(req.ScopeItems) == 0 {
		b.WriteString("(No scope items defined)\n")
	}
	for i, item := range req.ScopeItems {
		fmt.Fprintf(&b, "%d. %s", i, item.Title)
		if item.Description != "" {
			fmt.Fprintf(&b, " - %s", item.Description)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n## Client Request:\n%s\n", req.Content)

	if req.ProjectContext != "" {
		fmt.Fprintf(&b, "\n## Project Context:\n%s\n", req.ProjectContext)
	}

	b.WriteString("\nAnalyze this request and provide your assessment as JSON.")
	return b.String()
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

func parseGPTResult(text string, scopeLen int) (Result, error) {
	var raw gptResult
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return Result{}, fmt.Errorf("parsing GPT response: %w", err)
	}

	switch {
	case raw.Classification == nil:
		return Result{}, errors.New("GPT response missing classification")
	case raw.Confidence == nil:
		return Result{}, errors.New("GPT response missing confidence")
	case raw.Reasoning == nil:
		return Result{}, errors.New("GPT response missing reasoning")
	case raw.SuggestedAction == nil:
		return Result{}, errors.New("GPT response missing suggested_action")
	}

	result := Result{
		Classification:        Classification(strings.TrimSpace(*raw.Classification)),
		Confidence:            *raw.Confidence,
		Reasoning:             strings.TrimSpace(*raw.Reasoning),
		MatchedScopeItemIndex: raw.MatchedScopeItemIndex,
		SuggestedAction:       strings.TrimSpace(*raw.SuggestedAction),
		ScopeCreepIndicators:  cleanPhrases(raw.ScopeCreepIndicators),
	}
	if err := result.Validate(scopeLen); err != nil {
		return Result{}, fmt.Errorf("validating GPT response: %w", err)
	}
	return result, nil
}

func quotePhrases(phrases []string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = `"` + p + `"`
	}
	return strings.Join(quoted, ", ")
}
