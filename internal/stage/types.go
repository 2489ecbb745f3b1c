package stage

// Fact is one extracted observation from an interview. IDs are assigned
// sequentially within a single extraction run and are not stable across
// re-runs.
type Fact struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // fact|pain|frequency|workaround
	Content  string `json:"content"`
	Evidence string `json:"evidence"`
	Severity string `json:"severity"` // high|medium|low
}

// FactsArtifact is the persisted facts payload.
type FactsArtifact struct {
	Facts []Fact `json:"facts"`
}

// Hypothesis is one testable product hypothesis grounded in facts.
type Hypothesis struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	SupportingFacts  []string `json:"supportingFacts"`
	CounterEvidence  string   `json:"counterEvidence"`
	UnverifiedPoints []string `json:"unverifiedPoints"`
}

// HypothesesArtifact is the persisted hypotheses payload.
type HypothesesArtifact struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
}

// Feature is one product capability in the requirements artifact.
type Feature struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // must|should|could
}

// RequirementsArtifact is the persisted requirements payload.
type RequirementsArtifact struct {
	ProblemStatement string    `json:"problemStatement"`
	TargetUsers      string    `json:"targetUsers"`
	CoreFeatures     []Feature `json:"coreFeatures"`
	SuccessMetrics   []string  `json:"successMetrics"`
	OutOfScope       []string  `json:"outOfScope"`
}

// Entity is one data-model entity in the specification artifact.
type Entity struct {
	Entity string   `json:"entity"`
	Fields []string `json:"fields"`
}

// Endpoint is one API endpoint in the specification artifact.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// SpecificationArtifact is the persisted technical specification payload.
type SpecificationArtifact struct {
	Overview     string     `json:"overview"`
	DataModel    []Entity   `json:"dataModel"`
	APIEndpoints []Endpoint `json:"apiEndpoints"`
	TechStack    []string   `json:"techStack"`
	Risks        []string   `json:"risks"`
}

// ReadinessCheck is one line of the readiness checklist.
type ReadinessCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ReadinessReport is the computed build-readiness checklist. It is
// derived from persisted artifacts on demand, never stored.
type ReadinessReport struct {
	Ready  bool             `json:"ready"`
	Checks []ReadinessCheck `json:"checks"`
}
