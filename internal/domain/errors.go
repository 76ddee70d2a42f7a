package domain

import "errors"

var (
	// ErrAlreadyLocked is returned when a competition already has a snapshot.
	ErrAlreadyLocked = errors.New("draw snapshot already locked for competition")
	// ErrAlreadyDrawn is returned when a snapshot has already produced a winner.
	ErrAlreadyDrawn = errors.New("draw already resolved for competition")
	// ErrNoSnapshot indicates an operation that requires a locked snapshot.
	ErrNoSnapshot = errors.New("no draw snapshot locked for competition")
	// ErrNoDrawResult indicates publication was attempted before a draw ran.
	ErrNoDrawResult = errors.New("no draw result exists for competition")
	// ErrNoEligibleCandidates blocks locking an empty candidate list.
	ErrNoEligibleCandidates = errors.New("no eligible candidates to lock")
	// ErrEmptySnapshot guards the draw against a zero-ticket snapshot.
	ErrEmptySnapshot = errors.New("snapshot holds no tickets")
	// ErrUnauthorized is returned when the actor lacks the required role.
	ErrUnauthorized = errors.New("actor not authorized for this operation")
	// ErrReasonTooShort rejects reset requests without a meaningful reason.
	ErrReasonTooShort = errors.New("reset reason is too short")
	// ErrManualAdjustmentsDisabled blocks manual grants when the competition forbids them.
	ErrManualAdjustmentsDisabled = errors.New("manual ticket adjustments are disabled for competition")
	// ErrCompetitionNotFound indicates the rule configuration could not be loaded.
	ErrCompetitionNotFound = errors.New("competition not found")
)
