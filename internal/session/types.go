package session

import "time"

// Status is the lifecycle state of a session. Stage writes move it
// forward through the ordered states; it never moves backward.
type Status string

const (
	StatusInterviewing  Status = "interviewing"
	StatusAnalyzed      Status = "analyzed"
	StatusHypothesized  Status = "hypothesized"
	StatusRequirements  Status = "requirements_generated"
	StatusSpecification Status = "specification_generated"
	StatusReadiness     Status = "readiness_checked"

	// StatusRespondentDone is the parallel terminal state for shared-link
	// and campaign respondents. For ordering it counts as analyzed.
	StatusRespondentDone Status = "respondent_done"
)

// Mode describes how a session is run.
type Mode string

const (
	ModeSelf     Mode = "self"     // owner runs their own interview
	ModeShared   Mode = "shared"   // anonymous respondent via shared link
	ModeCampaign Mode = "campaign" // respondent within a campaign
)

// Stage identifies one generation stage. Stage artifacts are keyed by
// (session, stage); at most one artifact exists per pair.
type Stage string

const (
	StageFacts         Stage = "facts"
	StageHypotheses    Stage = "hypotheses"
	StageRequirements  Stage = "requirements"
	StageSpecification Stage = "specification"
)

// Session is one respondent's end-to-end interview-to-specification run.
type Session struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id,omitempty"`
	Theme          string    `json:"theme"`
	Status         Status    `json:"status"`
	Mode           Mode      `json:"mode"`
	CampaignID     string    `json:"campaign_id,omitempty"`
	RespondentName string    `json:"respondent_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Turn is one message in a session's conversation. Turns are append-only
// and strictly ordered by Seq.
type Turn struct {
	Seq       int64     `json:"seq"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is the persisted structured output of one stage for one session.
// Payload holds the normalized JSON document; ParseFallback marks artifacts
// that wrap unparseable generative output.
type Artifact struct {
	SessionID     string    `json:"session_id"`
	Stage         Stage     `json:"stage"`
	Payload       []byte    `json:"payload"`
	ParseFallback bool      `json:"parse_fallback"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
