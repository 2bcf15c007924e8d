package models

import "time"

// EngagementState is the sealed set of lifecycle variants. Only StateCompleted
// carries a completion timestamp, so the status/completed_at pairing cannot
// drift when a transition is expressed through it.
type EngagementState interface {
	Status() EngagementStatus
	Columns() (EngagementStatus, *time.Time)
	isEngagementState()
}

type (
	StateRequested       struct{}
	StateApproved        struct{}
	StateAwaitingPayment struct{}
	StateActive          struct{}
	StateCancelled       struct{}
	StateRejected        struct{}
	// StateCompleted records when the final schedule item was completed.
	StateCompleted struct{ CompletedAt time.Time }
)

func (StateRequested) Status() EngagementStatus       { return EngagementStatusRequested }
func (StateApproved) Status() EngagementStatus        { return EngagementStatusApproved }
func (StateAwaitingPayment) Status() EngagementStatus { return EngagementStatusAwaitingPayment }
func (StateActive) Status() EngagementStatus          { return EngagementStatusActive }
func (StateCancelled) Status() EngagementStatus       { return EngagementStatusCancelled }
func (StateRejected) Status() EngagementStatus        { return EngagementStatusRejected }
func (StateCompleted) Status() EngagementStatus       { return EngagementStatusCompleted }

func (s StateRequested) Columns() (EngagementStatus, *time.Time)       { return s.Status(), nil }
func (s StateApproved) Columns() (EngagementStatus, *time.Time)        { return s.Status(), nil }
func (s StateAwaitingPayment) Columns() (EngagementStatus, *time.Time) { return s.Status(), nil }
func (s StateActive) Columns() (EngagementStatus, *time.Time)          { return s.Status(), nil }
func (s StateCancelled) Columns() (EngagementStatus, *time.Time)       { return s.Status(), nil }
func (s StateRejected) Columns() (EngagementStatus, *time.Time)        { return s.Status(), nil }

func (s StateCompleted) Columns() (EngagementStatus, *time.Time) {
	at := s.CompletedAt.UTC()
	return s.Status(), &at
}

func (StateRequested) isEngagementState()       {}
func (StateApproved) isEngagementState()        {}
func (StateAwaitingPayment) isEngagementState() {}
func (StateActive) isEngagementState()          {}
func (StateCancelled) isEngagementState()       {}
func (StateRejected) isEngagementState()        {}
func (StateCompleted) isEngagementState()       {}

// StateFromColumns rebuilds the variant from stored columns. A completed row
// missing its timestamp is read back as active so the evaluator can repair it.
func StateFromColumns(status EngagementStatus, completedAt *time.Time) EngagementState {
	switch status {
	case EngagementStatusRequested:
		return StateRequested{}
	case EngagementStatusApproved:
		return StateApproved{}
	case EngagementStatusAwaitingPayment:
		return StateAwaitingPayment{}
	case EngagementStatusCompleted:
		if completedAt == nil {
			return StateActive{}
		}
		return StateCompleted{CompletedAt: *completedAt}
	case EngagementStatusCancelled:
		return StateCancelled{}
	case EngagementStatusRejected:
		return StateRejected{}
	default:
		return StateActive{}
	}
}
