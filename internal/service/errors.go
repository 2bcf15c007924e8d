package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is the base kind for missing engagements, items, payments and courses.
var ErrNotFound = errors.New("not found")

var (
	// ErrEngagementNotFound indicates the engagement does not exist.
	ErrEngagementNotFound = fmt.Errorf("engagement %w", ErrNotFound)
	// ErrScheduleItemNotFound indicates the schedule item does not exist for the engagement.
	ErrScheduleItemNotFound = fmt.Errorf("schedule item %w", ErrNotFound)
	// ErrPaymentNotFound indicates the payment does not exist.
	ErrPaymentNotFound = fmt.Errorf("payment %w", ErrNotFound)
	// ErrCourseNotFound indicates no engagement exists for the course triple.
	ErrCourseNotFound = fmt.Errorf("course %w", ErrNotFound)
)

// ErrInvalidTransition is returned when an action is not allowed from the current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrMissingPlan marks schedule generation without a curriculum. Generation
// still succeeds with placeholder titles; the error is only logged.
var ErrMissingPlan = errors.New("curriculum plan missing")

// ErrScheduleAlreadyGenerated guards against generating a schedule twice.
var ErrScheduleAlreadyGenerated = errors.New("schedule already generated")

func invalidTransition(entity string, from interface{}, action string) error {
	return fmt.Errorf("%w: cannot %s %s in status %v", ErrInvalidTransition, action, entity, from)
}

// ErrForbidden is returned when the caller is not a participant allowed to act.
var ErrForbidden = errors.New("caller is not allowed to act on this engagement")
