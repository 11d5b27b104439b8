package domain

import "time"

// PendingCommit records a claim whose actions were applied but whose commit call failed.
// Recovery retries the commit only; the actions are never re-applied.
type PendingCommit struct {
	ID         string              `json:"id"              db:"id"`
	Player     string              `json:"player"          db:"player"`
	Day        string              `json:"day"             db:"day"`
	MinSteps   int64               `json:"min_steps"       db:"min_steps"`
	TierLabel  string              `json:"tier_label"      db:"tier_label"`
	Steps      int64               `json:"steps"           db:"steps"`
	Error      string              `json:"error_msg"       db:"error_msg"`
	RetryCount int                 `json:"retry_count"     db:"retry_count"`
	Status     PendingCommitStatus `json:"status"          db:"status"`
	CreatedAt  time.Time           `json:"created_at"      db:"created_at"`
	LastTry    time.Time           `json:"last_attempt_at" db:"last_attempt_at"`
}

type PendingCommitStatus string

const (
	PendingCommitStatusPending   PendingCommitStatus = "pending"
	PendingCommitStatusResolved  PendingCommitStatus = "resolved"
	PendingCommitStatusAbandoned PendingCommitStatus = "abandoned"
)
