package models

// ScopeClassification is the stored verdict for a client request.
type ScopeClassification string

const (
	ClassificationInScope             ScopeClassification = "in_scope"
	ClassificationOutOfScope          ScopeClassification = "out_of_scope"
	ClassificationClarificationNeeded ScopeClassification = "clarification_needed"
	ClassificationRevision            ScopeClassification = "revision"
	ClassificationPending             ScopeClassification = "pending" // not yet analyzed
)

type RequestStatus string

const (
	StatusNew          RequestStatus = "new"
	StatusAnalyzed     RequestStatus = "analyzed"
	StatusAddressed    RequestStatus = "addressed"
	StatusProposalSent RequestStatus = "proposal_sent"
	StatusDeclined     RequestStatus = "declined"
)

// RequestSource records how a client request reached the freelancer.
type RequestSource string

const (
	SourceEmail   RequestSource = "email"
	SourceChat    RequestSource = "chat"
	SourceCall    RequestSource = "call"
	SourceMeeting RequestSource = "meeting"
	SourceOther   RequestSource = "other"
)
