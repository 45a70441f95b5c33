package models

import (
	"math/big"
	"time"
)

// JobStatus is the lifecycle state of a job as recorded on the ledger.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusClaimed   JobStatus = "CLAIMED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusVerified  JobStatus = "VERIFIED"
)

// validTransitions holds the forward edges of the lifecycle state machine.
// Reject (COMPLETED -> PENDING) is the only backward edge and may repeat
// without bound.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusClaimed},
	JobStatusClaimed:   {JobStatusCompleted},
	JobStatusCompleted: {JobStatusVerified, JobStatusPending},
	JobStatusVerified:  {},
}

// CanTransition reports whether the ledger contract would accept a move
// from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave the status.
func (s JobStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Job mirrors a single job record on the marketplace contract. The ledger
// is authoritative for every field; local code never invents values here.
type Job struct {
	ID              string    `json:"id"`
	Submitter       string    `json:"submitter"`
	Worker          string    `json:"worker,omitempty"`
	Status          JobStatus `json:"status"`
	RewardAmount    *big.Int  `json:"reward_amount"`
	Description     string    `json:"description"`
	Result          string    `json:"result,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	TimesRejected   int       `json:"times_rejected"`
	CreatedAt       time.Time `json:"created_at"`
	Deadline        time.Time `json:"deadline"`
}

// HasWorker reports whether a worker is assigned. Holds exactly when
// Status is CLAIMED, COMPLETED or VERIFIED.
func (j *Job) HasWorker() bool {
	return j.Worker != ""
}

// Clone returns a deep copy, so cache snapshots cannot alias the reward
// amount of the stored record.
func (j *Job) Clone() Job {
	out := *j
	if j.RewardAmount != nil {
		out.RewardAmount = new(big.Int).Set(j.RewardAmount)
	}
	return out
}
