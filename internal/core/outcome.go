package core

import "glow-backend-go/internal/models"

// OutcomeKind discriminates the result of reconciling one billing event.
type OutcomeKind string

const (
	// OutcomeApplied means exactly one plan record was written.
	OutcomeApplied OutcomeKind = "applied"
	// OutcomeIgnored means the event was acknowledged without a state change.
	OutcomeIgnored OutcomeKind = "ignored"
	// OutcomeFailed means an internal error occurred and the sender should retry.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of PlanService.HandleEvent.
// Record is set for applied, Reason for ignored, Err for failed.
type Outcome struct {
	Kind   OutcomeKind
	Record *models.UserPlanRecord
	Reason string
	Err    error
}

func applied(record *models.UserPlanRecord) Outcome {
	return Outcome{Kind: OutcomeApplied, Record: record}
}

func ignored(reason string) Outcome {
	return Outcome{Kind: OutcomeIgnored, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}
