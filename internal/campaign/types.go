package campaign

import "time"

// Campaign groups a theme and an owning session with any number of
// independently progressing respondent sessions.
type Campaign struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id,omitempty"`
	Theme          string    `json:"theme"`
	OwnerSessionID string    `json:"owner_session_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Funnel events tracked per campaign. Counters are independent of the
// session data they summarize; a lost increment skews the funnel but
// never the aggregate facts.
const (
	EventPageViews           = "page_views"
	EventSessionsCreated     = "sessions_created"
	EventInterviewsStarted   = "interviews_started"
	EventRequirementsReached = "requirements_reached"
)

var validEvents = map[string]bool{
	EventPageViews:           true,
	EventSessionsCreated:     true,
	EventInterviewsStarted:   true,
	EventRequirementsReached: true,
}

// CommonFact is one cross-respondent fact group, keyed by exact
// trimmed content.
type CommonFact struct {
	Content  string `json:"content"`
	Count    int    `json:"count"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// PainPoint is a ranked pain-type fact group.
type PainPoint struct {
	Content  string `json:"content"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
}

// Aggregate is the cross-respondent summary, computed on read.
type Aggregate struct {
	TotalSessions     int              `json:"totalSessions"`
	CompletedSessions int              `json:"completedSessions"`
	CommonFacts       []CommonFact     `json:"commonFacts"`
	PainPoints        []PainPoint      `json:"painPoints"`
	KeywordCounts     map[string]int   `json:"keywordCounts"`
	Funnel            map[string]int64 `json:"funnel"`
}
