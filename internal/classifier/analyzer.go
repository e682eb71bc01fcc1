package classifier

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultModel       = "gpt-4"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.3
)

// Strategy names which classifier handles a call.
type Strategy string

const (
	StrategyRules    Strategy = "rules"
	StrategyAdvanced Strategy = "advanced"
)

// Config selects and tunes the analysis strategy.
type Config struct {
	UseAdvanced bool
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	// Temperature is the sampling temperature; nil uses DefaultTemperature.
	Temperature *float64
	Lexicons    *Lexicons
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	return c
}

// Analyzer is the entry point for scope analysis.
type Analyzer struct {
	strategy Strategy
	rules    *RuleClassifier
	advanced Classifier
	logger   *zap.Logger
}

func NewAnalyzer(cfg Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}

	lex := DefaultLexicons()
	if cfg.Lexicons != nil {
		lex = *cfg.Lexicons
	}

	a := &Analyzer{
		strategy: StrategyRules,
		rules:    NewRuleClassifier(lex),
		logger:   logger,
	}
	if cfg.UseAdvanced && cfg.APIKey != "" {
		a.strategy = StrategyAdvanced
		a.advanced = NewGPTClassifier(cfg, a.rules, logger)
	}
	return a
}

func (a *Analyzer) Strategy() Strategy {
	return a.strategy
}

func (a *Analyzer) classifier() Classifier {
	if a.strategy == StrategyAdvanced {
		return a.advanced
	}
	return a.rules
}

// AnalyzeScope classifies req with the configured strategy. It only fails
// for an invalid request; provider failures fall back to the rules.
func (a *Analyzer) AnalyzeScope(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	a.logger.Debug("Analyzing scope",
		zap.String("strategy", string(a.strategy)),
		zap.Int("scope_items", len(req.ScopeItems)))

	return a.classifier().Classify(ctx, req), nil
}

// AnalyzeScopeSync always uses the rule classifier.
func (a *Analyzer) AnalyzeScopeSync(req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	return a.rules.Analyze(req), nil
}

// Lexicons returns the phrase lists the rule classifier uses.
func (a *Analyzer) Lexicons() Lexicons {
	return a.rules.Lexicons()
}
