package services_test

import (
	"context"
	"io"
	"math/big"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"taskmarket/internal/ledger"
	"taskmarket/internal/ledger/memledger"
	"taskmarket/internal/models"
)

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func params(reward int64) ledger.SubmitParams {
	return ledger.SubmitParams{
		Description: "label a dataset",
		Reward:      big.NewInt(reward),
		Deadline:    time.Now().Add(120 * time.Minute),
	}
}

// countingGateway counts write and read traffic so tests can assert that
// local fast-fail paths never reach the ledger.
type countingGateway struct {
	ledger.Gateway
	writes int32
	reads  int32
}

func (g *countingGateway) ClaimJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	atomic.AddInt32(&g.writes, 1)
	return g.Gateway.ClaimJob(ctx, jobID, signer)
}

func (g *countingGateway) CompleteJob(ctx context.Context, jobID, result string, signer ledger.Signer) error {
	atomic.AddInt32(&g.writes, 1)
	return g.Gateway.CompleteJob(ctx, jobID, result, signer)
}

func (g *countingGateway) VerifyJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	atomic.AddInt32(&g.writes, 1)
	return g.Gateway.VerifyJob(ctx, jobID, signer)
}

func (g *countingGateway) RejectJob(ctx context.Context, jobID, reason string, signer ledger.Signer) error {
	atomic.AddInt32(&g.writes, 1)
	return g.Gateway.RejectJob(ctx, jobID, reason, signer)
}

func (g *countingGateway) GetJobsByOwner(ctx context.Context, address string) ([]models.Job, error) {
	atomic.AddInt32(&g.reads, 1)
	return g.Gateway.GetJobsByOwner(ctx, address)
}

func (g *countingGateway) writeCount() int32 { return atomic.LoadInt32(&g.writes) }
func (g *countingGateway) readCount() int32  { return atomic.LoadInt32(&g.reads) }

// gatedGateway holds every ClaimJob call at a barrier until released, so a
// test can guarantee that competing claims were submitted concurrently.
type gatedGateway struct {
	ledger.Gateway
	entered chan struct{}
	release chan struct{}
}

func newGatedGateway(inner ledger.Gateway) *gatedGateway {
	return &gatedGateway{
		Gateway: inner,
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *gatedGateway) ClaimJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	g.entered <- struct{}{}
	<-g.release
	return g.Gateway.ClaimJob(ctx, jobID, signer)
}

// slowGateway blocks GetJobsByOwner until released, for coalescing tests.
type slowGateway struct {
	ledger.Gateway
	calls   int32
	started chan struct{}
	release chan struct{}
}

func newSlowGateway(inner ledger.Gateway) *slowGateway {
	return &slowGateway{
		Gateway: inner,
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *slowGateway) GetJobsByOwner(ctx context.Context, address string) ([]models.Job, error) {
	atomic.AddInt32(&g.calls, 1)
	g.started <- struct{}{}
	<-g.release
	return g.Gateway.GetJobsByOwner(ctx, address)
}

func (g *slowGateway) callCount() int32 { return atomic.LoadInt32(&g.calls) }

func seededLedger(address string, amount int64) *memledger.Ledger {
	l := memledger.New()
	l.Credit(address, big.NewInt(amount))
	return l
}
