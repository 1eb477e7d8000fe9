package models

import "time"

// JobStatus is the lifecycle state shared by every job record.
type JobStatus string

const (
	StatusDraft      JobStatus = "DRAFT"
	StatusScheduled  JobStatus = "SCHEDULED"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusPublished  JobStatus = "PUBLISHED"
	StatusFailed     JobStatus = "FAILED"
)

// DefaultMaxRetries applies when a record is created without an explicit ceiling.
const DefaultMaxRetries = 3

// Retries returns a retry ceiling for a record. Zero means a single attempt.
// The ceiling is a pointer so an explicit zero survives the column default.
func Retries(n int) *int {
	return &n
}

func retryCeiling(v *int) int {
	if v == nil {
		return DefaultMaxRetries
	}
	return *v
}

func (s JobStatus) IsTerminal() bool {
	return s == StatusPublished || s == StatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusInProgress, StatusPublished, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a record may move from one status to another.
// Status only moves forward; IN_PROGRESS -> IN_PROGRESS covers a retry attempt.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case StatusDraft:
		return to == StatusScheduled || to == StatusInProgress || to == StatusFailed
	case StatusScheduled:
		return to == StatusInProgress || to == StatusFailed
	case StatusInProgress:
		return to == StatusInProgress || to == StatusPublished || to == StatusFailed
	}
	return false
}

// SourceStatuses lists every status that may transition into to.
func SourceStatuses(to JobStatus) []JobStatus {
	var out []JobStatus
	for _, from := range []JobStatus{StatusDraft, StatusScheduled, StatusInProgress} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// JobState is the retry bookkeeping common to social posts and AI interactions.
type JobState struct {
	ID          string
	Status      JobStatus
	Attempts    int
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
	Version     int
}

// RetriesLeft reports whether a failed attempt may still be retried.
func (s JobState) RetriesLeft() bool {
	return s.RetryCount < s.MaxRetries
}

// Exhausted reports whether more attempts were started than the ceiling allows,
// which only happens when deliveries are lost between start and outcome.
func (s JobState) Exhausted() bool {
	return s.Attempts > s.MaxRetries
}
