package classifier

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidRequest is returned when an analysis request or result breaks
// its invariants.
var ErrInvalidRequest = errors.New("invalid analysis request")

// Classification is the verdict for a client request relative to project scope.
type Classification string

const (
	InScope             Classification = "in_scope"
	OutOfScope          Classification = "out_of_scope"
	ClarificationNeeded Classification = "clarification_needed"
	Revision            Classification = "revision"
)

// Classifications lists every verdict the analyzer can produce.
func Classifications() []Classification {
	return []Classification{InScope, OutOfScope, ClarificationNeeded, Revision}
}

func (c Classification) Valid() bool {
	switch c {
	case InScope, OutOfScope, ClarificationNeeded, Revision:
		return true
	}
	return false
}

// ScopeItem is a snapshot of one scope-of-work line item.
// A nil ID means the item has no identifier (ad hoc analysis).
type ScopeItem struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Order       int       `json:"order" yaml:"order"`
}

// Text is the string compared against client requests.
func (s ScopeItem) Text() string {
	if s.Description == "" {
		return s.Title
	}
	return s.Title + " " + s.Description
}

// Request is the single input of an analysis.
type Request struct {
	Content        string      `json:"request_content"`
	ScopeItems     []ScopeItem `json:"scope_items"`
	ProjectContext string      `json:"project_context,omitempty"`
}

// NewRequest builds a validated Request.
func NewRequest(content string, items []ScopeItem, projectContext string) (Request, error) {
	req := Request{
		Content:        content,
		ScopeItems:     items,
		ProjectContext: projectContext,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: request content is empty", ErrInvalidRequest)
	}
	for i, item := range r.ScopeItems {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("%w: scope item %d has no title", ErrInvalidRequest, i)
		}
	}
	return nil
}

// Result is the single output of an analysis.
type Result struct {
	Classification        Classification `json:"classification"`
	Confidence            float64        `json:"confidence"`
	Reasoning             string         `json:"reasoning"`
	MatchedScopeItemIndex *int           `json:"matched_scope_item_index"`
	MatchedScopeItemID    *uuid.UUID     `json:"matched_scope_item_id"`
	SuggestedAction       string         `json:"suggested_action"`
	ScopeCreepIndicators  []string       `json:"scope_creep_indicators"`
}

// Validate checks the result against a request with scopeLen scope items.
func (r Result) Validate(scopeLen int) error {
	if !r.Classification.Valid() {
		return fmt.Errorf("%w: unknown classification %q", ErrInvalidRequest, r.Classification)
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidRequest, r.Confidence)
	}
	if strings.TrimSpace(r.Reasoning) == "" {
		return fmt.Errorf("%w: empty reasoning", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.SuggestedAction) == "" {
		return fmt.Errorf("%w: empty suggested action", ErrInvalidRequest)
	}
	if r.MatchedScopeItemIndex != nil {
		if idx := *r.MatchedScopeItemIndex; idx < 0 || idx >= scopeLen {
			return fmt.Errorf("%w: matched index %d out of range [0,%d)", ErrInvalidRequest, idx, scopeLen)
		}
	}
	seen := make(map[string]struct{}, len(r.ScopeCreepIndicators))
	for _, phrase := range r.ScopeCreepIndicators {
		if _, dup := seen[phrase]; dup {
			return fmt.Errorf("%w: duplicate indicator %q", ErrInvalidRequest, phrase)
		}
		seen[phrase] = struct{}{}
	}
	return nil
}

// RequestUpdate is the field set a persistence layer writes back onto a
// stored client request.
type RequestUpdate struct {
	Classification    Classification
	Confidence        float64
	AnalysisReasoning string
	SuggestedAction   string
	LinkedScopeItemID *uuid.UUID
}

func (r Result) ToRequestUpdate() RequestUpdate {
	return RequestUpdate{
		Classification:    r.Classification,
		Confidence:        RoundConfidence(r.Confidence),
		AnalysisReasoning: r.Reasoning,
		SuggestedAction:   r.SuggestedAction,
		LinkedScopeItemID: r.MatchedScopeItemID,
	}
}

// RoundConfidence rounds to two decimals, the precision confidence is stored with.
func RoundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}

func intPtr(i int) *int {
	return &i
}
