// Package memledger is an in-process ledger used by tests and by
// `ledger.mode: memory`. It enforces the same transition and authorization
// rules the marketplace contract does, including mutual exclusion on
// claims, so the client core can be exercised against realistic outcomes
// without a chain.
package memledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
)

type Ledger struct {
	mu       sync.Mutex
	jobs     map[string]*models.Job
	balances map[string]*big.Int
}

var _ ledger.Gateway = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{
		jobs:     make(map[string]*models.Job),
		balances: make(map[string]*big.Int),
	}
}

// Credit funds an address. Stands in for the faucet/exchange path that
// exists outside the marketplace.
func (l *Ledger) Credit(address string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceLocked(address).Add(l.balanceLocked(address), amount)
}

// DeleteJob removes a job outright and refunds any escrow, simulating a
// deletion by an actor with authority outside this client.
func (l *Ledger) DeleteJob(jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	job, ok := l.jobs[jobID]
	if !ok {
		return
	}
	if job.Status != models.JobStatusVerified {
		l.balanceLocked(job.Submitter).Add(l.balanceLocked(job.Submitter), job.RewardAmount)
	}
	delete(l.jobs, jobID)
}

func (l *Ledger) balanceLocked(address string) *big.Int {
	b, ok := l.balances[address]
	if !ok {
		b = new(big.Int)
		l.balances[address] = b
	}
	return b
}

func (l *Ledger) SubmitJob(ctx context.Context, p ledger.SubmitParams, signer ledger.Signer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.Reward == nil || p.Reward.Sign() <= 0 {
		return "", fmt.Errorf("submit: non-positive reward: %w", ledger.ErrRejected)
	}
	if !p.Deadline.After(time.Now()) {
		return "", fmt.Errorf("submit: deadline in the past: %w", ledger.ErrRejected)
	}
	balance := l.balanceLocked(signer.Address())
	if balance.Cmp(p.Reward) < 0 {
		return "", fmt.Errorf("submit: insufficient funds for escrow: %w", ledger.ErrRejected)
	}
	balance.Sub(balance, p.Reward)

	job := &models.Job{
		ID:           uuid.NewString(),
		Submitter:    signer.Address(),
		Status:       models.JobStatusPending,
		RewardAmount: new(big.Int).Set(p.Reward),
		Description:  p.Description,
		CreatedAt:    time.Now().UTC(),
		Deadline:     p.Deadline.UTC(),
	}
	l.jobs[job.ID] = job
	return job.ID, nil
}

func (l *Ledger) ClaimJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return fmt.Errorf("claim %s: %w", jobID, ledger.ErrRejected)
	}
	// The lock makes this check-and-set atomic: at most one claim commits.
	if job.Status != models.JobStatusPending {
		return fmt.Errorf("claim %s: job is %s: %w", jobID, job.Status, ledger.ErrRejected)
	}
	if job.Submitter == signer.Address() {
		return fmt.Errorf("claim %s: submitter cannot claim own job: %w", jobID, ledger.ErrRejected)
	}
	job.Status = models.JobStatusClaimed
	job.Worker = signer.Address()
	job.RejectionReason = ""
	return nil
}

func (l *Ledger) CompleteJob(ctx context.Context, jobID, result string, signer ledger.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return fmt.Errorf("complete %s: %w", jobID, ledger.ErrRejected)
	}
	if job.Status != models.JobStatusClaimed || job.Worker != signer.Address() {
		return fmt.Errorf("complete %s: job is %s: %w", jobID, job.Status, ledger.ErrRejected)
	}
	job.Status = models.JobStatusCompleted
	job.Result = result
	return nil
}

func (l *Ledger) VerifyJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return fmt.Errorf("verify %s: %w", jobID, ledger.ErrRejected)
	}
	if job.Status != models.JobStatusCompleted || job.Submitter != signer.Address() {
		return fmt.Errorf("verify %s: job is %s: %w", jobID, job.Status, ledger.ErrRejected)
	}
	job.Status = models.JobStatusVerified
	worker := l.balanceLocked(job.Worker)
	worker.Add(worker, job.RewardAmount)
	return nil
}

func (l *Ledger) RejectJob(ctx context.Context, jobID, reason string, signer ledger.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return fmt.Errorf("reject %s: %w", jobID, ledger.ErrRejected)
	}
	if job.Status != models.JobStatusCompleted || job.Submitter != signer.Address() {
		return fmt.Errorf("reject %s: job is %s: %w", jobID, job.Status, ledger.ErrRejected)
	}
	if reason == "" {
		return fmt.Errorf("reject %s: empty reason: %w", jobID, ledger.ErrRejected)
	}
	job.Status = models.JobStatusPending
	job.Worker = ""
	job.Result = ""
	job.RejectionReason = reason
	job.TimesRejected++
	return nil
}

func (l *Ledger) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", jobID, ledger.ErrNotFound)
	}
	out := job.Clone()
	return &out, nil
}

func (l *Ledger) GetJobsByOwner(ctx context.Context, address string) ([]models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Job
	for _, job := range l.jobs {
		if job.Submitter == address || job.Worker == address {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (l *Ledger) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(address)), nil
}
