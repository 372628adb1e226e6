package model

import (
	"fmt"
	"time"
)

// ExecutionSummary is one entry of a state machine's execution listing.
type ExecutionSummary struct {
	ExecutionArn    string
	StateMachineArn string
	Status          string
	StartDate       time.Time
}

// ExecutionRecord is a summary enriched with its input, ready for output.
type ExecutionRecord struct {
	ExecutionArn     string  `json:"executionArn"`
	Status           string  `json:"status"`
	StartDate        string  `json:"startDate"`
	Input            *string `json:"input"`
	InputQueryResult string  `json:"inputQueryResult,omitempty"`

	StateMachineArn string `json:"-"`
}

const startDateLayout = "2006-01-02 15:04:05"

// FormatStartDate renders t in UTC as "YYYY-MM-DD HH:MM:SS[.ffffff]+00:00".
// The fraction is in microseconds and only present when non-zero.
func FormatStartDate(t time.Time) string {
	t = t.UTC()
	if us := t.Nanosecond() / int(time.Microsecond); us != 0 {
		return fmt.Sprintf("%s.%06d+00:00", t.Format(startDateLayout), us)
	}
	return t.Format(startDateLayout) + "+00:00"
}
