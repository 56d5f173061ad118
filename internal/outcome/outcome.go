// Package outcome defines the classified results produced by maintenance
// checks and the per-run counters derived from them.
package outcome

import "time"

// Kind classifies the result of one check execution.
type Kind int

const (
	// Observed means the check ran and found nothing wrong.
	Observed Kind = iota

	// Found means a problem exists but no remediation was applied
	// (either none is available or the policy gate denied it).
	Found

	// Fixed means a remediation was applied and is believed successful.
	Fixed

	// Failed means a remediation was attempted and did not succeed.
	Failed

	// Critical means no remediation is available or remediation failed in
	// a way that requires external attention or escalation.
	Critical
)

// String returns the audit-log label for the kind.
func (k Kind) String() string {
	switch k {
	case Observed:
		return "OBSERVED"
	case Found:
		return "FOUND"
	case Fixed:
		return "FIXED"
	case Failed:
		return "FAILED"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Outcome is one immutable, timestamped result from a check. Significance
// is decided by the check at creation time; a Fixed outcome with
// Significant=false (a no-op cleanup, an unverified cache drop) is recorded
// but never notified.
type Outcome struct {
	Kind        Kind
	Subject     string
	Remedy      string
	Significant bool
	At          time.Time
}

// New builds a significant outcome stamped with the current time.
func New(kind Kind, subject, remedy string) Outcome {
	return Outcome{
		Kind:        kind,
		Subject:     subject,
		Remedy:      remedy,
		Significant: true,
		At:          time.Now(),
	}
}

// NewTrivial builds an outcome that should never trigger a notification,
// regardless of per-kind notify flags.
func NewTrivial(kind Kind, subject, remedy string) Outcome {
	o := New(kind, subject, remedy)
	o.Significant = false
	return o
}

// Counters tracks how many outcomes of each notable kind one run produced.
// A fresh Counters value starts at zero; values only grow during a run.
type Counters struct {
	Found    int
	Fixed    int
	Failed   int
	Critical int
}

// Count increments the counter matching the outcome kind. Observed
// outcomes are not counted.
func (c *Counters) Count(k Kind) {
	switch k {
	case Found:
		c.Found++
	case Fixed:
		c.Fixed++
	case Failed:
		c.Failed++
	case Critical:
		c.Critical++
	}
}

// Total returns the number of counted (non-Observed) outcomes.
func (c Counters) Total() int {
	return c.Found + c.Fixed + c.Failed + c.Critical
}
