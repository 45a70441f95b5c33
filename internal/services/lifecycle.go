package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
	"taskmarket/internal/store"
)

// LifecycleController validates and executes job transitions. Each
// operation checks the transition against the cached view first (fast
// fail, no ledger round-trip), submits through the gateway, and reconciles
// the cache from an authoritative re-read once the ledger settles. The
// local check is an optimization only; the ledger's own checks remain
// authoritative.
type LifecycleController struct {
	gateway ledger.Gateway
	cache   *store.JobCache
	arbiter *ClaimArbiter
	log     *log.Entry
}

func NewLifecycleController(gw ledger.Gateway, cache *store.JobCache, logger *log.Logger) *LifecycleController {
	return &LifecycleController{
		gateway: gw,
		cache:   cache,
		arbiter: NewClaimArbiter(gw, cache, logger),
		log:     logger.WithField("component", "lifecycle"),
	}
}

// Submit escrows the reward and creates a PENDING job, returning its id.
func (c *LifecycleController) Submit(ctx context.Context, p ledger.SubmitParams, signer ledger.Signer) (string, error) {
	if p.Reward == nil || p.Reward.Sign() <= 0 {
		return "", models.NewActionError(models.KindInvalidState, "submit", "", signer.Address(),
			fmt.Errorf("reward must be positive: %w", models.ErrValidation))
	}
	if !p.Deadline.After(time.Now()) {
		return "", models.NewActionError(models.KindInvalidState, "submit", "", signer.Address(),
			fmt.Errorf("deadline must be in the future: %w", models.ErrValidation))
	}

	jobID, err := c.gateway.SubmitJob(ctx, p, signer)
	if err != nil {
		return "", c.classify("submit", jobID, signer.Address(), err)
	}
	c.log.WithField("job_id", jobID).Info("job submitted")

	if _, err := refetch(ctx, c.gateway, c.cache, jobID); err != nil {
		// The job exists; the cache catches up on the next poll.
		c.log.WithField("job_id", jobID).WithError(err).Warn("post-submit re-read failed")
	}
	return jobID, nil
}

// Claim delegates to the ClaimArbiter, which owns race interpretation.
func (c *LifecycleController) Claim(ctx context.Context, jobID string, signer ledger.Signer) error {
	return c.arbiter.Claim(ctx, jobID, signer)
}

// Complete attaches the result payload. Only the current worker may call it.
func (c *LifecycleController) Complete(ctx context.Context, jobID, result string, signer ledger.Signer) error {
	snap, err := snapshotFor(ctx, c.gateway, c.cache, jobID)
	if err != nil {
		return c.classify("complete", jobID, signer.Address(), err)
	}
	if !snap.Present {
		return models.NewActionError(models.KindDeleted, "complete", jobID, signer.Address(), models.ErrDeleted)
	}
	if snap.Job.Status != models.JobStatusClaimed {
		return models.NewActionError(models.KindInvalidState, "complete", jobID, signer.Address(),
			fmt.Errorf("job is %s: %w", snap.Job.Status, models.ErrInvalidState))
	}
	if snap.Job.Worker != signer.Address() {
		return models.NewActionError(models.KindPermissionDenied, "complete", jobID, signer.Address(),
			fmt.Errorf("only the current worker may complete: %w", models.ErrPermissionDenied))
	}

	if err := c.gateway.CompleteJob(ctx, jobID, result, signer); err != nil {
		return c.classify("complete", jobID, signer.Address(), err)
	}
	c.settle(ctx, "complete", jobID)
	return nil
}

// Verify releases escrow to the worker. Terminal; only the submitter may
// call it, and verifying an already VERIFIED job fails locally, so escrow
// can never be re-released by this client.
func (c *LifecycleController) Verify(ctx context.Context, jobID string, signer ledger.Signer) error {
	snap, err := snapshotFor(ctx, c.gateway, c.cache, jobID)
	if err != nil {
		return c.classify("verify", jobID, signer.Address(), err)
	}
	if !snap.Present {
		return models.NewActionError(models.KindDeleted, "verify", jobID, signer.Address(), models.ErrDeleted)
	}
	if snap.Job.Status != models.JobStatusCompleted {
		return models.NewActionError(models.KindInvalidState, "verify", jobID, signer.Address(),
			fmt.Errorf("job is %s: %w", snap.Job.Status, models.ErrInvalidState))
	}
	if snap.Job.Submitter != signer.Address() {
		return models.NewActionError(models.KindPermissionDenied, "verify", jobID, signer.Address(),
			fmt.Errorf("only the submitter may verify: %w", models.ErrPermissionDenied))
	}

	if err := c.gateway.VerifyJob(ctx, jobID, signer); err != nil {
		return c.classify("verify", jobID, signer.Address(), err)
	}
	c.settle(ctx, "verify", jobID)
	return nil
}

// Reject reopens a COMPLETED job: worker and result are cleared, the
// reason is attached and the job returns to PENDING. No cycle cap is
// enforced here; capping repeated rejection is a product-layer policy.
func (c *LifecycleController) Reject(ctx context.Context, jobID, reason string, signer ledger.Signer) error {
	if reason == "" {
		return models.NewActionError(models.KindInvalidState, "reject", jobID, signer.Address(),
			fmt.Errorf("rejection reason must not be empty: %w", models.ErrValidation))
	}
	snap, err := snapshotFor(ctx, c.gateway, c.cache, jobID)
	if err != nil {
		return c.classify("reject", jobID, signer.Address(), err)
	}
	if !snap.Present {
		return models.NewActionError(models.KindDeleted, "reject", jobID, signer.Address(), models.ErrDeleted)
	}
	if snap.Job.Status != models.JobStatusCompleted {
		return models.NewActionError(models.KindInvalidState, "reject", jobID, signer.Address(),
			fmt.Errorf("job is %s: %w", snap.Job.Status, models.ErrInvalidState))
	}
	if snap.Job.Submitter != signer.Address() {
		return models.NewActionError(models.KindPermissionDenied, "reject", jobID, signer.Address(),
			fmt.Errorf("only the submitter may reject: %w", models.ErrPermissionDenied))
	}

	if err := c.gateway.RejectJob(ctx, jobID, reason, signer); err != nil {
		return c.classify("reject", jobID, signer.Address(), err)
	}
	c.settle(ctx, "reject", jobID)
	return nil
}

// Lookup re-verifies a single job against the ledger and returns the fresh
// snapshot. Explicit status queries always re-verify rather than trusting a
// prior deletion or a stale record; a confirmed absence tombstones the id.
func (c *LifecycleController) Lookup(ctx context.Context, jobID string) (store.Snapshot, error) {
	if _, err := refetch(ctx, c.gateway, c.cache, jobID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return store.Snapshot{}, err
	}
	snap, _ := c.cache.Get(jobID)
	return snap, nil
}

// settle re-reads after an accepted transaction so the cache reflects what
// the ledger actually committed.
func (c *LifecycleController) settle(ctx context.Context, op, jobID string) {
	if _, err := refetch(ctx, c.gateway, c.cache, jobID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		c.log.WithFields(log.Fields{"op": op, "job_id": jobID}).WithError(err).Warn("post-settlement re-read failed")
	}
}

// classify maps gateway and lookup failures onto the caller-facing error
// taxonomy. Ledger rejections become StaleConflict without touching the
// cache; the caller refreshes before retrying.
func (c *LifecycleController) classify(op, jobID, actor string, err error) error {
	var ae *models.ActionError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, ledger.ErrTimeout):
		return models.NewActionError(models.KindTimeout, op, jobID, actor, err)
	case errors.Is(err, ledger.ErrRejected):
		return models.NewActionError(models.KindStaleConflict, op, jobID, actor, err)
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, models.ErrNotFound):
		return models.NewActionError(models.KindDeleted, op, jobID, actor, err)
	default:
		return models.NewActionError(models.KindTransactionFailed, op, jobID, actor, err)
	}
}
