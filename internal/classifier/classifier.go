package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Classifier decides whether a client request falls within project scope.
type Classifier interface {
	Classify(ctx context.Context, req Request) Result
}

// Similarity thresholds used by the rule classifier.
const (
	clarificationMatchThreshold = 0.1
	revisionMatchThreshold      = 0.15
	strongMatchThreshold        = 0.4
	goodMatchThreshold          = 0.3
	partialMatchThreshold       = 0.15
)

var suggestedActions = map[Classification]string{
	InScope:             "Proceed with the work as it falls within the agreed scope.",
	OutOfScope:          "Send a proposal or quote for this additional work before proceeding.",
	ClarificationNeeded: "Respond to the client's question to clarify the requirements.",
	Revision:            "Discuss the revision with the client - minor changes may be included, major changes may require a change order.",
}

// SuggestedAction returns the recommended next step for a classification.
func SuggestedAction(c Classification) string {
	return suggestedActions[c]
}

// RuleClassifier classifies requests with phrase detection and word overlap.
// It holds no mutable state and is safe for concurrent use.
type RuleClassifier struct {
	lexicons Lexicons
}

func NewRuleClassifier(lexicons Lexicons) *RuleClassifier {
	return &RuleClassifier{lexicons: lexicons.normalized()}
}

func (c *RuleClassifier) Lexicons() Lexicons {
	return c.lexicons
}

func (c *RuleClassifier) Classify(_ context.Context, req Request) Result {
	return c.Analyze(req)
}

// Analyze runs the rule set. The first matching branch wins:
// empty scope, clarification, revision, scope creep, then fuzzy matching.
func (c *RuleClassifier) Analyze(req Request) Result {
	content := req.Content

	clarification := FindPhrases(content, c.lexicons.Clarification)
	revision := FindPhrases(content, c.lexicons.Revision)
	creep := FindPhrases(content, c.lexicons.ScopeCreep)

	matchIndex, score, matchID := BestScopeMatch(content, req.ScopeItems)

	result := Result{ScopeCreepIndicators: creep}
	finish := func(class Classification, confidence float64, reasoning string) Result {
		result.Classification = class
		result.Confidence = confidence
		result.Reasoning = reasoning
		result.SuggestedAction = SuggestedAction(class)
		return result
	}
	withMatch := func() {
		result.MatchedScopeItemIndex = matchIndex
		result.MatchedScopeItemID = matchID
	}
	matchedTitle := func() string {
		return req.ScopeItems[*matchIndex].Title
	}

	if len(req.ScopeItems) == 0 {
		return finish(OutOfScope, 0.9,
			"No scope items defined - cannot determine if request is in scope.")
	}

	if len(clarification) > 0 {
		if score > clarificationMatchThreshold {
			withMatch()
		}
		return finish(ClarificationNeeded, 0.85, fmt.Sprintf(
			"Client appears to be asking for clarification. Detected phrases: %s",
			strings.Join(clarification, ", ")))
	}

	if len(revision) > 0 && score > revisionMatchThreshold {
		withMatch()
		return finish(Revision, math.Min(0.8, 0.5+score), fmt.Sprintf(
			"Client requesting changes to existing scope item. Detected revision phrases: %s. Matched scope item: '%s'",
			strings.Join(revision, ", "), matchedTitle()))
	}

	if n := float64(len(creep)); n > 0 {
		if score > strongMatchThreshold {
			withMatch()
			return finish(InScope, math.Max(0.5, 0.7-0.1*n), fmt.Sprintf(
				"Request matches scope item '%s' but contains scope creep language: %s. Review carefully.",
				matchedTitle(), strings.Join(creep, ", ")))
		}
		return finish(OutOfScope, math.Min(0.95, 0.7+0.05*n), fmt.Sprintf(
			"Request contains scope creep indicators: %s. No strong match to existing scope items.",
			strings.Join(creep, ", ")))
	}

	switch {
	case score > goodMatchThreshold:
		withMatch()
		return finish(InScope, math.Min(0.95, 0.5+score), fmt.Sprintf(
			"Request matches scope item: '%s' with %.0f%% similarity.",
			matchedTitle(), score*100))
	case score > partialMatchThreshold:
		withMatch()
		return finish(InScope, 0.5+score, fmt.Sprintf(
			"Partial match to scope item: '%s'. Consider clarifying with client.",
			matchedTitle()))
	}

	return finish(OutOfScope, 0.6,
		"No significant match to any scope items. Request may be outside project scope.")
}
