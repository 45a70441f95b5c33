package services

import (
	"context"
	"errors"
	"fmt"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
	"taskmarket/internal/store"
)

// refetch performs a targeted authoritative read and reconciles the cache
// with the outcome. A confirmed "not found" marks the job deleted; a
// transient read failure leaves the cache untouched.
func refetch(ctx context.Context, gw ledger.Gateway, cache *store.JobCache, jobID string) (*models.Job, error) {
	job, err := gw.GetJob(ctx, jobID)
	switch {
	case err == nil:
		cache.Reconcile(jobID, job)
		return job, nil
	case errors.Is(err, ledger.ErrNotFound):
		cache.Reconcile(jobID, nil)
		return nil, err
	default:
		return nil, fmt.Errorf("refetch job %s: %w", jobID, err)
	}
}

// snapshotFor returns the cached view of a job, fetching once from the
// ledger when the id is unknown locally.
func snapshotFor(ctx context.Context, gw ledger.Gateway, cache *store.JobCache, jobID string) (store.Snapshot, error) {
	if snap, ok := cache.Get(jobID); ok {
		return snap, nil
	}
	if _, err := refetch(ctx, gw, cache, jobID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return store.Snapshot{}, err
	}
	snap, ok := cache.Get(jobID)
	if !ok {
		return store.Snapshot{}, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	return snap, nil
}
