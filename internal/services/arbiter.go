package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
	"taskmarket/internal/store"
)

// ClaimArbiter submits claims and interprets their outcome. Claims are the
// one true race in the system: two workers can both observe PENDING and
// both submit. The ledger commits at most one; this side only classifies
// the result, it never tries to prevent the race.
type ClaimArbiter struct {
	gateway ledger.Gateway
	cache   *store.JobCache
	log     *log.Entry
}

func NewClaimArbiter(gw ledger.Gateway, cache *store.JobCache, logger *log.Logger) *ClaimArbiter {
	return &ClaimArbiter{
		gateway: gw,
		cache:   cache,
		log:     logger.WithField("component", "claim_arbiter"),
	}
}

// Claim attempts to claim a PENDING job for the signer. A rejection caused
// by another worker winning the race surfaces as LostClaimRace, which needs
// no retry, only a refresh; any other rejection is TransactionFailed and
// may be retried by the caller.
func (a *ClaimArbiter) Claim(ctx context.Context, jobID string, signer ledger.Signer) error {
	actor := signer.Address()

	snap, err := snapshotFor(ctx, a.gateway, a.cache, jobID)
	if err != nil {
		return a.classifyLookup(jobID, actor, err)
	}
	if !snap.Present {
		return models.NewActionError(models.KindDeleted, "claim", jobID, actor, models.ErrDeleted)
	}
	if snap.Job.Status != models.JobStatusPending {
		return models.NewActionError(models.KindInvalidState, "claim", jobID, actor,
			fmt.Errorf("job is %s: %w", snap.Job.Status, models.ErrInvalidState))
	}
	// Enforced locally even though the ledger also rejects it: a submitter
	// claiming their own job never deserves a round-trip.
	if snap.Job.Submitter == actor {
		return models.NewActionError(models.KindPermissionDenied, "claim", jobID, actor,
			fmt.Errorf("submitter cannot claim own job: %w", models.ErrPermissionDenied))
	}

	err = a.gateway.ClaimJob(ctx, jobID, signer)
	switch {
	case err == nil:
		return a.confirm(ctx, jobID, actor)
	case errors.Is(err, ledger.ErrTimeout):
		// Outcome unknown. The caller must re-read before concluding anything.
		return models.NewActionError(models.KindTimeout, "claim", jobID, actor, err)
	case errors.Is(err, ledger.ErrRejected):
		return a.interpretRejection(ctx, jobID, actor, err)
	default:
		return models.NewActionError(models.KindTransactionFailed, "claim", jobID, actor, err)
	}
}

// confirm re-reads after an accepted claim. If the authoritative record
// shows a different worker, the acceptance we saw belonged to someone
// else's transaction ordering and we lost.
func (a *ClaimArbiter) confirm(ctx context.Context, jobID, actor string) error {
	job, err := refetch(ctx, a.gateway, a.cache, jobID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return models.NewActionError(models.KindDeleted, "claim", jobID, actor, models.ErrDeleted)
		}
		a.log.WithField("job_id", jobID).WithError(err).Warn("post-claim re-read failed")
		return nil
	}
	if job.Worker != actor {
		return models.NewActionError(models.KindLostClaimRace, "claim", jobID, actor,
			fmt.Errorf("job claimed by %s", job.Worker))
	}
	a.log.WithFields(log.Fields{"job_id": jobID, "worker": actor}).Info("claim won")
	return nil
}

// interpretRejection distinguishes losing the race from a generic failure
// by consulting the authoritative state.
func (a *ClaimArbiter) interpretRejection(ctx context.Context, jobID, actor string, cause error) error {
	job, err := refetch(ctx, a.gateway, a.cache, jobID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return models.NewActionError(models.KindDeleted, "claim", jobID, actor, models.ErrDeleted)
		}
		// Could not establish why; surface the original rejection.
		return models.NewActionError(models.KindTransactionFailed, "claim", jobID, actor, cause)
	}
	if job.HasWorker() && job.Worker != actor {
		a.log.WithFields(log.Fields{"job_id": jobID, "winner": job.Worker}).Debug("claim lost to concurrent worker")
		return models.NewActionError(models.KindLostClaimRace, "claim", jobID, actor,
			fmt.Errorf("job claimed by %s", job.Worker))
	}
	return models.NewActionError(models.KindTransactionFailed, "claim", jobID, actor, cause)
}

func (a *ClaimArbiter) classifyLookup(jobID, actor string, err error) error {
	var ae *models.ActionError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, ledger.ErrTimeout):
		return models.NewActionError(models.KindTimeout, "claim", jobID, actor, err)
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, models.ErrNotFound):
		return models.NewActionError(models.KindDeleted, "claim", jobID, actor, err)
	default:
		return models.NewActionError(models.KindTransactionFailed, "claim", jobID, actor, err)
	}
}
