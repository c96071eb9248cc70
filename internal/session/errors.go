package session

import "errors"

var (
	// ErrOffline means the connectivity pre-check failed before any
	// network I/O. The draft is untouched; retry when back online.
	ErrOffline = errors.New("network unavailable, answers kept locally")

	// ErrSubmissionRejected means the exam service refused or failed the
	// submission after the connectivity check passed. The draft is
	// untouched; a fresh Submit is safe.
	ErrSubmissionRejected = errors.New("submission rejected by exam service")

	// ErrSubmissionInFlight means a submission is already running;
	// the duplicate call is suppressed.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	ErrExamNotFound     = errors.New("exam not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session not active")
	ErrSessionCompleted = errors.New("session already completed")

	ErrUnknownQuestion    = errors.New("question not part of this exam")
	ErrInvalidOption      = errors.New("option key not valid for question")
	ErrAnswerTypeMismatch = errors.New("response variant does not match question type")
	ErrIndexOutOfRange    = errors.New("question index out of range")
)
