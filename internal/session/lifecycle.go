package session

import "github.com/specloom/specloom/internal/httpx"

// statusRank orders lifecycle states. respondent_done ranks with
// analyzed: a completed respondent has finished interviewing but their
// artifacts are generated by the campaign owner's pipeline.
var statusRank = map[Status]int{
	StatusInterviewing:   0,
	StatusAnalyzed:       1,
	StatusRespondentDone: 1,
	StatusHypothesized:   2,
	StatusRequirements:   3,
	StatusSpecification:  4,
	StatusReadiness:      5,
}

// Rank returns the ordering position of a status. Unknown statuses rank lowest.
func Rank(s Status) int {
	return statusRank[s]
}

// stageStatus maps each stage to the status a successful run confers.
var stageStatus = map[Stage]Status{
	StageFacts:         StatusAnalyzed,
	StageHypotheses:    StatusHypothesized,
	StageRequirements:  StatusRequirements,
	StageSpecification: StatusSpecification,
}

// StatusFor returns the status a successful run of stage confers.
func StatusFor(stage Stage) Status {
	return stageStatus[stage]
}

// stageDeps lists the artifacts that must exist before a stage may run.
// A stage may be re-run after the session has advanced past it; only the
// presence of strictly-prior artifacts matters, not the current status.
var stageDeps = map[Stage][]Stage{
	StageFacts:         {},
	StageHypotheses:    {StageFacts},
	StageRequirements:  {StageFacts, StageHypotheses},
	StageSpecification: {StageRequirements},
}

// Dependencies returns the stages whose artifacts must exist before
// the given stage may run.
func Dependencies(stage Stage) []Stage {
	return stageDeps[stage]
}

// stageName is the human label used in precondition error messages.
var stageName = map[Stage]string{
	StageFacts:         "fact extraction",
	StageHypotheses:    "hypothesis generation",
	StageRequirements:  "requirements generation",
	StageSpecification: "specification generation",
}

// StageLabel returns the human label for a stage.
func StageLabel(stage Stage) string {
	return stageName[stage]
}

// CheckDependencies verifies that every dependency artifact for stage is
// persisted, returning a precondition error naming the first missing one.
func CheckDependencies(stage Stage, have func(Stage) bool) error {
	for _, dep := range Dependencies(stage) {
		if !have(dep) {
			return httpx.Preconditionf("run %s first", stageName[dep])
		}
	}
	return nil
}

// AdvanceStatus returns the status the session should hold after a
// successful write of stage. Status is monotonic: re-running an earlier
// stage never regresses a session that has advanced further.
func AdvanceStatus(current Status, stage Stage) Status {
	next := StatusFor(stage)
	if Rank(next) > Rank(current) {
		return next
	}
	return current
}

// DoneForAggregation reports whether a respondent session counts as
// completed for campaign aggregation.
func DoneForAggregation(s Status) bool {
	return s == StatusRespondentDone || Rank(s) >= Rank(StatusAnalyzed)
}
