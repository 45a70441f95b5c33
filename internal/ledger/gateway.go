package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"taskmarket/internal/models"
)

// Signer is the opaque identity performing a write. Key material stays
// behind the gateway implementation; the core only ever sees the address.
type Signer interface {
	Address() string
}

// AddressSigner is a bare address with no attached key, sufficient for the
// memory ledger and for read paths.
type AddressSigner string

func (s AddressSigner) Address() string { return string(s) }

var (
	// ErrRejected means the ledger refused the transaction. The remote
	// state diverged from the caller's view, or the contract's own checks
	// failed; callers re-read to find out which.
	ErrRejected = errors.New("transaction rejected by ledger")

	// ErrNotFound means the job does not exist on the ledger at read time.
	ErrNotFound = errors.New("job not found on ledger")

	// ErrTimeout means the call exceeded its bound. The transaction may
	// still have committed; only a re-read can tell.
	ErrTimeout = errors.New("ledger call timed out")
)

// SubmitParams are the immutable fields fixed at job submission.
type SubmitParams struct {
	Description string
	Reward      *big.Int
	Deadline    time.Time
}

// Gateway is the boundary to the external ledger. Reads are point-in-time;
// writes settle before returning. The ledger holds no locks for us and we
// hold none for it.
type Gateway interface {
	SubmitJob(ctx context.Context, p SubmitParams, signer Signer) (string, error)
	ClaimJob(ctx context.Context, jobID string, signer Signer) error
	CompleteJob(ctx context.Context, jobID, result string, signer Signer) error
	VerifyJob(ctx context.Context, jobID string, signer Signer) error
	RejectJob(ctx context.Context, jobID, reason string, signer Signer) error

	// GetJob returns the current record or ErrNotFound.
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// GetJobsByOwner returns every job where the address is submitter or
	// current worker. Finite, restartable read.
	GetJobsByOwner(ctx context.Context, address string) ([]models.Job, error)

	// GetBalance returns the spendable balance in the ledger's smallest unit.
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}
