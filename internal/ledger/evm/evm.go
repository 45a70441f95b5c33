// Package evm implements the ledger gateway against the marketplace
// contract on an Ethereum-compatible chain.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
)

// Config encapsulates the options for connecting to the marketplace contract.
type Config struct {
	// Endpoint is the RPC URL of a node (http, ws or ipc).
	Endpoint string
	// ContractAddress is the deployed marketplace contract.
	ContractAddress string
	// ChainID is required for EIP-155 signing.
	ChainID int64
	// PrivateKeys maps lowercase hex addresses to hex-encoded keys. Only
	// addresses listed here can sign writes through this gateway.
	PrivateKeys map[string]string
	// CallTimeout bounds every ledger call, reads and settlement included.
	CallTimeout time.Duration
}

type Gateway struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	chainID  *big.Int
	keys     map[string]*ecdsa.PrivateKey
	timeout  time.Duration
}

var _ ledger.Gateway = (*Gateway)(nil)

func New(cfg Config) (*Gateway, error) {
	client, err := ethclient.Dial(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("dialling ledger node: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("parsing marketplace ABI: %w", err)
	}
	addr := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(addr, parsed, client, client, client)

	keys := make(map[string]*ecdsa.PrivateKey, len(cfg.PrivateKeys))
	for address, hexkey := range cfg.PrivateKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexkey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing key for %s: %w", address, err)
		}
		keys[strings.ToLower(address)] = key
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Gateway{
		client:   client,
		contract: contract,
		chainID:  big.NewInt(cfg.ChainID),
		keys:     keys,
		timeout:  timeout,
	}, nil
}

// statusByCode maps the contract's status enum onto the model.
var statusByCode = map[uint8]models.JobStatus{
	0: models.JobStatusPending,
	1: models.JobStatusClaimed,
	2: models.JobStatusCompleted,
	3: models.JobStatusVerified,
}

// rawJob matches the Job tuple in the contract ABI.
type rawJob struct {
	Id              *big.Int
	Submitter       common.Address
	Worker          common.Address
	Status          uint8
	Reward          *big.Int
	Description     string
	Result          string
	RejectionReason string
	TimesRejected   uint32
	CreatedAt       uint64
	Deadline        uint64
}

func (r *rawJob) toModel() (models.Job, error) {
	status, ok := statusByCode[r.Status]
	if !ok {
		return models.Job{}, fmt.Errorf("unknown status code %d for job %s", r.Status, r.Id)
	}
	worker := ""
	if r.Worker != (common.Address{}) {
		worker = r.Worker.Hex()
	}
	return models.Job{
		ID:              r.Id.String(),
		Submitter:       r.Submitter.Hex(),
		Worker:          worker,
		Status:          status,
		RewardAmount:    new(big.Int).Set(r.Reward),
		Description:     r.Description,
		Result:          r.Result,
		RejectionReason: r.RejectionReason,
		TimesRejected:   int(r.TimesRejected),
		CreatedAt:       time.Unix(int64(r.CreatedAt), 0).UTC(),
		Deadline:        time.Unix(int64(r.Deadline), 0).UTC(),
	}, nil
}

func parseJobID(jobID string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(jobID, 10)
	if !ok {
		return nil, fmt.Errorf("malformed job id %q", jobID)
	}
	return n, nil
}

func (g *Gateway) transactorFor(signer ledger.Signer) (*bind.TransactOpts, error) {
	key, ok := g.keys[strings.ToLower(signer.Address())]
	if !ok {
		return nil, fmt.Errorf("no signing key registered for %s", signer.Address())
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, g.chainID)
	if err != nil {
		return nil, fmt.Errorf("building transactor for %s: %w", signer.Address(), err)
	}
	return opts, nil
}

// classify folds transport-level errors into the gateway error contract.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ledger.ErrTimeout)
	case strings.Contains(err.Error(), "execution reverted"):
		// Gas estimation runs the call and surfaces reverts pre-submission.
		return fmt.Errorf("%s: %v: %w", op, err, ledger.ErrRejected)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// transact submits a state-changing call and waits for it to settle.
func (g *Gateway) transact(ctx context.Context, signer ledger.Signer, method string, value *big.Int, args ...interface{}) (*types.Receipt, error) {
	opts, err := g.transactorFor(signer)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	opts.Context = cctx
	opts.Value = value

	tx, err := g.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, classify(method, err)
	}
	receipt, err := bind.WaitMined(cctx, g.client, tx)
	if err != nil {
		return nil, classify(method, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%s: reverted in block %s: %w", method, receipt.BlockNumber, ledger.ErrRejected)
	}
	return receipt, nil
}

func (g *Gateway) SubmitJob(ctx context.Context, p ledger.SubmitParams, signer ledger.Signer) (string, error) {
	// The reward travels as the transaction value and lands in escrow.
	receipt, err := g.transact(ctx, signer, "submitJob", p.Reward, p.Description, uint64(p.Deadline.Unix()))
	if err != nil {
		return "", err
	}
	for _, entry := range receipt.Logs {
		var ev struct {
			JobId     *big.Int
			Submitter common.Address
		}
		if err := g.contract.UnpackLog(&ev, "JobSubmitted", *entry); err == nil {
			return ev.JobId.String(), nil
		}
	}
	return "", fmt.Errorf("submitJob: settled but no JobSubmitted event in receipt %s", receipt.TxHash)
}

func (g *Gateway) ClaimJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	id, err := parseJobID(jobID)
	if err != nil {
		return err
	}
	_, err = g.transact(ctx, signer, "claimJob", nil, id)
	return err
}

func (g *Gateway) CompleteJob(ctx context.Context, jobID, result string, signer ledger.Signer) error {
	id, err := parseJobID(jobID)
	if err != nil {
		return err
	}
	_, err = g.transact(ctx, signer, "completeJob", nil, id, result)
	return err
}

func (g *Gateway) VerifyJob(ctx context.Context, jobID string, signer ledger.Signer) error {
	id, err := parseJobID(jobID)
	if err != nil {
		return err
	}
	_, err = g.transact(ctx, signer, "verifyJob", nil, id)
	return err
}

func (g *Gateway) RejectJob(ctx context.Context, jobID, reason string, signer ledger.Signer) error {
	id, err := parseJobID(jobID)
	if err != nil {
		return err
	}
	_, err = g.transact(ctx, signer, "rejectJob", nil, id, reason)
	return err
}

func (g *Gateway) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	id, err := parseJobID(jobID)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: cctx}, &out, "getJob", id); err != nil {
		return nil, classify("getJob", err)
	}
	raw := *abi.ConvertType(out[0], new(rawJob)).(*rawJob)
	exists := *abi.ConvertType(out[1], new(bool)).(*bool)
	if !exists {
		return nil, fmt.Errorf("getJob %s: %w", jobID, ledger.ErrNotFound)
	}
	job, err := raw.toModel()
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}
	return &job, nil
}

func (g *Gateway) GetJobsByOwner(ctx context.Context, address string) ([]models.Job, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var out []interface{}
	err := g.contract.Call(&bind.CallOpts{Context: cctx}, &out, "getJobsByOwner", common.HexToAddress(address))
	if err != nil {
		return nil, classify("getJobsByOwner", err)
	}
	raws := *abi.ConvertType(out[0], new([]rawJob)).(*[]rawJob)
	jobs := make([]models.Job, 0, len(raws))
	for i := range raws {
		job, err := raws[i].toModel()
		if err != nil {
			return nil, fmt.Errorf("getJobsByOwner: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (g *Gateway) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	balance, err := g.client.BalanceAt(cctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, classify("getBalance", err)
	}
	return balance, nil
}
