// Package lifecycle holds the submission review state machine and the
// authorization rules gating who may drive it. It is pure decision logic:
// no I/O, no clock, no store access. Services feed it the current record
// state and an intended action and persist whatever it allows.
package lifecycle

import (
	"errors"
	"strings"
)

// Status enumerates the persisted states of a submission.
type Status string

const (
	// StatusPending marks a submission awaiting admin review.
	StatusPending Status = "pending"
	// StatusAccepted marks a submission approved by an admin. Terminal.
	StatusAccepted Status = "accepted"
	// StatusRejected marks a submission returned with feedback. The owning
	// student may resubmit, which moves it back to pending.
	StatusRejected Status = "rejected"

	// StatusNone is the implicit pre-state before any submission exists.
	StatusNone Status = ""
)

// Action enumerates the operations that drive status changes.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
)

var (
	// ErrInvalidTransition signals the requested action is illegal from the
	// current status, including the losing side of a concurrent review race.
	ErrInvalidTransition = errors.New("invalid submission transition")
	// ErrInvalidContent signals a submission carrying neither answer text nor
	// an uploaded artifact.
	ErrInvalidContent = errors.New("submission requires answer text or an artifact")
	// ErrMissingFeedback signals a rejection without reviewer feedback.
	ErrMissingFeedback = errors.New("feedback is required when rejecting")
)

type transitionKey struct {
	from   Status
	action Action
}

// transitions is the single authoritative table of legal status changes.
// Anything absent from this table is an invalid transition.
var transitions = map[transitionKey]Status{
	{from: StatusNone, action: ActionSubmit}:       StatusPending,
	{from: StatusPending, action: ActionAccept}:    StatusAccepted,
	{from: StatusPending, action: ActionReject}:    StatusRejected,
	{from: StatusRejected, action: ActionResubmit}: StatusPending,
}

// Next returns the status a submission moves to when the given action is
// applied, or ErrInvalidTransition when the (status, action) pair is not in
// the transition table.
func Next(from Status, action Action) (Status, error) {
	next, ok := transitions[transitionKey{from: from, action: action}]
	if !ok {
		return from, ErrInvalidTransition
	}
	return next, nil
}

// CanResubmit reports whether a submission in the given status may be
// replaced by a fresh attempt from its owner.
func CanResubmit(from Status) bool {
	_, ok := transitions[transitionKey{from: from, action: ActionResubmit}]
	return ok
}

// Content is the student-supplied body of a submission attempt.
type Content struct {
	AnswerText  string
	ArtifactURL string
}

// Validate enforces the at-least-one-of rule: a submission must carry answer
// text, an artifact reference, or both.
func (c Content) Validate() error {
	if strings.TrimSpace(c.AnswerText) == "" && strings.TrimSpace(c.ArtifactURL) == "" {
		return ErrInvalidContent
	}
	return nil
}

// Verdict is the admin's review decision.
type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
)

// Action maps the verdict onto the state machine action it performs.
func (v Verdict) Action() (Action, error) {
	switch v {
	case VerdictAccept:
		return ActionAccept, nil
	case VerdictReject:
		return ActionReject, nil
	default:
		return "", ErrInvalidTransition
	}
}

// ValidateFeedback enforces the feedback invariant: rejections must carry a
// non-empty explanation, acceptances never require one.
func ValidateFeedback(verdict Verdict, feedback string) error {
	if verdict == VerdictReject && strings.TrimSpace(feedback) == "" {
		return ErrMissingFeedback
	}
	return nil
}
