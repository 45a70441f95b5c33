package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
	"taskmarket/internal/services"
	"taskmarket/internal/store"
)

func requireKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := models.KindOf(err)
	require.Truef(t, ok, "expected a classified error, got %v", err)
	assert.Equal(t, kind, got)
}

func TestFullLifecycleReleasesEscrow(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())
	oracle := services.NewBalanceOracle(l, testLogger())

	jobID, err := ctl.Submit(ctx, params(500_000), ledger.AddressSigner("alice"))
	require.NoError(t, err)

	snap, known := cache.Get(jobID)
	require.True(t, known, "submit reconciles the cache from a confirmed read")
	assert.Equal(t, models.JobStatusPending, snap.Job.Status)
	assert.False(t, snap.Job.HasWorker())

	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("workerA")))
	snap, _ = cache.Get(jobID)
	assert.Equal(t, models.JobStatusClaimed, snap.Job.Status)
	assert.Equal(t, "workerA", snap.Job.Worker)

	require.NoError(t, ctl.Complete(ctx, jobID, "result-X", ledger.AddressSigner("workerA")))
	snap, _ = cache.Get(jobID)
	assert.Equal(t, models.JobStatusCompleted, snap.Job.Status)
	assert.Equal(t, "result-X", snap.Job.Result)

	require.NoError(t, ctl.Verify(ctx, jobID, ledger.AddressSigner("alice")))
	snap, _ = cache.Get(jobID)
	assert.Equal(t, models.JobStatusVerified, snap.Job.Status)
	assert.Equal(t, "workerA", snap.Job.Worker)

	balance, err := oracle.Balance(ctx, "workerA")
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), balance.Int64())
}

func TestWorkerInvariantAcrossTransitions(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())

	jobID, err := ctl.Submit(ctx, params(100), ledger.AddressSigner("alice"))
	require.NoError(t, err)

	check := func() {
		snap, _ := cache.Get(jobID)
		switch snap.Job.Status {
		case models.JobStatusClaimed, models.JobStatusCompleted, models.JobStatusVerified:
			assert.True(t, snap.Job.HasWorker())
		default:
			assert.False(t, snap.Job.HasWorker())
		}
		assert.Equal(t, int64(100), snap.Job.RewardAmount.Int64(), "reward never changes")
	}

	check()
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("bob")))
	check()
	require.NoError(t, ctl.Complete(ctx, jobID, "out", ledger.AddressSigner("bob")))
	check()
	require.NoError(t, ctl.Reject(ctx, jobID, "redo", ledger.AddressSigner("alice")))
	check()
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("carol")))
	check()
}

func TestRejectCycleClearsWorkerAndAllowsReclaim(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())

	jobID, err := ctl.Submit(ctx, params(1000), ledger.AddressSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("workerA")))
	require.NoError(t, ctl.Complete(ctx, jobID, "draft", ledger.AddressSigner("workerA")))
	require.NoError(t, ctl.Reject(ctx, jobID, "insufficient quality", ledger.AddressSigner("alice")))

	snap, _ := cache.Get(jobID)
	assert.Equal(t, models.JobStatusPending, snap.Job.Status)
	assert.Empty(t, snap.Job.Worker)
	assert.Empty(t, snap.Job.Result)
	assert.Equal(t, "insufficient quality", snap.Job.RejectionReason)

	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("workerB")))
	snap, _ = cache.Get(jobID)
	assert.Equal(t, models.JobStatusClaimed, snap.Job.Status)
	assert.Equal(t, "workerB", snap.Job.Worker)
}

func TestVerifyIsNotRepeatable(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())
	oracle := services.NewBalanceOracle(l, testLogger())

	jobID, err := ctl.Submit(ctx, params(1000), ledger.AddressSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("bob")))
	require.NoError(t, ctl.Complete(ctx, jobID, "out", ledger.AddressSigner("bob")))
	require.NoError(t, ctl.Verify(ctx, jobID, ledger.AddressSigner("alice")))

	requireKind(t, ctl.Verify(ctx, jobID, ledger.AddressSigner("alice")), models.KindInvalidState)

	balance, err := oracle.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance.Int64(), "escrow is released exactly once")
}

func TestLocalPreconditionsNeverReachTheLedger(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	gw := &countingGateway{Gateway: l}
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(gw, cache, testLogger())

	jobID, err := ctl.Submit(ctx, params(1000), ledger.AddressSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("bob")))
	writes := gw.writeCount()

	// Wrong state: job is CLAIMED, not COMPLETED.
	requireKind(t, ctl.Verify(ctx, jobID, ledger.AddressSigner("alice")), models.KindInvalidState)
	// Wrong actor: only the worker may complete.
	requireKind(t, ctl.Complete(ctx, jobID, "x", ledger.AddressSigner("mallory")), models.KindPermissionDenied)
	// Empty reason fails validation before anything else.
	requireKind(t, ctl.Reject(ctx, jobID, "", ledger.AddressSigner("alice")), models.KindInvalidState)

	assert.Equal(t, writes, gw.writeCount(), "failed preconditions must not spend a ledger round-trip")
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())

	p := params(0)
	_, err := ctl.Submit(ctx, p, ledger.AddressSigner("alice"))
	requireKind(t, err, models.KindInvalidState)

	p = params(100)
	p.Deadline = time.Now().Add(-time.Hour)
	_, err = ctl.Submit(ctx, p, ledger.AddressSigner("alice"))
	requireKind(t, err, models.KindInvalidState)
}

func TestDeletionOverridesCachedStatus(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())

	jobID, err := ctl.Submit(ctx, params(1000), ledger.AddressSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("bob")))

	// Deleted out from under us by an actor with authority.
	l.DeleteJob(jobID)

	// An explicit status query observes the absence and tombstones the id.
	snap, err := ctl.Lookup(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, snap.Present)

	// Every action now fails locally, whatever the stale status said.
	requireKind(t, ctl.Complete(ctx, jobID, "x", ledger.AddressSigner("bob")), models.KindDeleted)
	requireKind(t, ctl.Verify(ctx, jobID, ledger.AddressSigner("alice")), models.KindDeleted)
	requireKind(t, ctl.Reject(ctx, jobID, "gone", ledger.AddressSigner("alice")), models.KindDeleted)
	requireKind(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("carol")), models.KindDeleted)
}

func TestStaleConflictWhenRemoteDiverged(t *testing.T) {
	ctx := context.Background()
	l := seededLedger("alice", 1_000_000)
	cache := store.NewJobCache()
	ctl := services.NewLifecycleController(l, cache, testLogger())

	jobID, err := ctl.Submit(ctx, params(1000), ledger.AddressSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, ctl.Claim(ctx, jobID, ledger.AddressSigner("bob")))
	require.NoError(t, ctl.Complete(ctx, jobID, "out", ledger.AddressSigner("bob")))

	// Another client verifies behind our back; our cache still says COMPLETED.
	require.NoError(t, l.VerifyJob(ctx, jobID, ledger.AddressSigner("alice")))

	err = ctl.Reject(ctx, jobID, "too late", ledger.AddressSigner("alice"))
	requireKind(t, err, models.KindStaleConflict)

	// Per contract the cache is untouched on rejection; the caller re-reads.
	snap, _ := cache.Get(jobID)
	assert.Equal(t, models.JobStatusCompleted, snap.Job.Status)

	fresh, err := ctl.Lookup(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusVerified, fresh.Job.Status)
}
