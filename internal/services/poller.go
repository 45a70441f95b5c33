package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"taskmarket/internal/ledger"
	"taskmarket/internal/store"
)

// Poller keeps the cache current for every subscribed address. Refreshes
// for one address are single-flight: requests arriving while one is
// outstanding coalesce into it, so an older read can never overwrite a
// newer one and a polling tick costs at most one ledger read.
type Poller struct {
	gateway  ledger.Gateway
	cache    *store.JobCache
	interval time.Duration
	group    singleflight.Group
	log      *log.Entry

	mu      sync.Mutex
	tracked map[string]*subscription
}

type subscription struct {
	tokens map[uuid.UUID]struct{}
	cancel context.CancelFunc
}

func NewPoller(gw ledger.Gateway, cache *store.JobCache, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Poller{
		gateway:  gw,
		cache:    cache,
		interval: interval,
		log:      logger.WithField("component", "poller"),
		tracked:  make(map[string]*subscription),
	}
}

// Subscribe registers interest in an address and returns a token for
// Unsubscribe. The first subscriber starts the refresh loop.
func (p *Poller) Subscribe(address string) uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := uuid.New()
	sub, ok := p.tracked[address]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		sub = &subscription{tokens: make(map[uuid.UUID]struct{}), cancel: cancel}
		p.tracked[address] = sub
		go p.run(ctx, address)
		p.log.WithField("address", address).Info("polling started")
	}
	sub.tokens[token] = struct{}{}
	return token
}

// Unsubscribe drops a consumer. The last one out cancels the loop
// immediately; no timer outlives its subscribers.
func (p *Poller) Unsubscribe(address string, token uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.tracked[address]
	if !ok {
		return
	}
	delete(sub.tokens, token)
	if len(sub.tokens) == 0 {
		sub.cancel()
		delete(p.tracked, address)
		p.log.WithField("address", address).Info("polling stopped")
	}
}

// RefreshNow refreshes an address outside the interval, coalescing with
// any in-flight refresh for the same address.
func (p *Poller) RefreshNow(ctx context.Context, address string) error {
	_, err, _ := p.group.Do(address, func() (interface{}, error) {
		jobs, err := p.gateway.GetJobsByOwner(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("refresh %s: %w", address, err)
		}
		// A cancelled read must not write a late result into the cache.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.cache.ReplaceAll(address, jobs)
		return nil, nil
	})
	return err
}

func (p *Poller) run(ctx context.Context, address string) {
	// Prime the cache right away rather than waiting a full interval.
	if err := p.RefreshNow(ctx, address); err != nil && ctx.Err() == nil {
		p.log.WithField("address", address).WithError(err).Warn("initial refresh failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RefreshNow(ctx, address); err != nil && ctx.Err() == nil {
				p.log.WithField("address", address).WithError(err).Warn("refresh failed")
			}
		}
	}
}
