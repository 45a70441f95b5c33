package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
)

// BalanceOracle answers balance queries with the same single-flight
// discipline as job refreshes, on its own singleflight group: a balance
// fetch failing or stalling never blocks a job-list refresh, and vice
// versa.
type BalanceOracle struct {
	gateway ledger.Gateway
	group   singleflight.Group
	log     *log.Entry

	mu   sync.RWMutex
	last map[string]*big.Int
}

func NewBalanceOracle(gw ledger.Gateway, logger *log.Logger) *BalanceOracle {
	return &BalanceOracle{
		gateway: gw,
		log:     logger.WithField("component", "balance_oracle"),
		last:    make(map[string]*big.Int),
	}
}

// Balance fetches the current balance for an address. Concurrent calls
// for the same address share one ledger read.
func (o *BalanceOracle) Balance(ctx context.Context, address string) (*big.Int, error) {
	v, err, _ := o.group.Do(address, func() (interface{}, error) {
		balance, err := o.gateway.GetBalance(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", address, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.last[address] = new(big.Int).Set(balance)
		o.mu.Unlock()
		return balance, nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrTimeout) {
			return nil, models.NewActionError(models.KindTimeout, "balance", "", address, err)
		}
		return nil, err
	}
	return new(big.Int).Set(v.(*big.Int)), nil
}

// LastKnown returns the most recent successfully fetched balance, if any.
func (o *BalanceOracle) LastKnown(address string) (*big.Int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	b, ok := o.last[address]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(b), true
}
