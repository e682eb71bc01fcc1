package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups the agreed scope of work and the client requests made against it.
type Project struct {
	ID          uuid.UUID    `json:"id"`
	ChatID      int64        `json:"chat_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	ScopeItems  []*ScopeItem `json:"scope_items"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ScopeItem is one line of a project's scope of work.
type ScopeItem struct {
	ID             uuid.UUID `json:"id"`
	ProjectID      uuid.UUID `json:"project_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Order          int       `json:"order"`
	IsCompleted    bool      `json:"is_completed"`
	EstimatedHours *float64  `json:"estimated_hours,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ClientRequest is a message from a client together with its latest analysis.
type ClientRequest struct {
	ID                uuid.UUID           `json:"id"`
	ProjectID         uuid.UUID           `json:"project_id"`
	LinkedScopeItemID *uuid.UUID          `json:"linked_scope_item_id,omitempty"`
	Title             string              `json:"title"`
	Content           string              `json:"content"`
	Source            RequestSource       `json:"source"`
	Status            RequestStatus       `json:"status"`
	Classification    ScopeClassification `json:"classification"`
	Confidence        *float64            `json:"confidence,omitempty"`
	AnalysisReasoning string              `json:"analysis_reasoning,omitempty"`
	SuggestedAction   string              `json:"suggested_action,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}
