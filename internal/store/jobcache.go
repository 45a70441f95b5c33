// Package store holds the local mirror of remote ledger state. The cache
// is the single source of truth for everything the rest of the process
// reads; it is only ever written from confirmed ledger reads, never from
// submitted-but-unsettled transactions.
package store

import (
	"sort"
	"sync"

	"taskmarket/internal/models"
)

// Snapshot is a point-in-time copy of a cached job. Present is false once
// a read confirmed the job no longer exists on the ledger.
type Snapshot struct {
	Job     models.Job
	Present bool
}

type entry struct {
	job     models.Job
	present bool
}

// JobCache maps job id to the last-known ledger record, plus the set of
// job ids visible per subscribed address.
type JobCache struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	owners map[string]map[string]struct{}
}

func NewJobCache() *JobCache {
	return &JobCache{
		jobs:   make(map[string]*entry),
		owners: make(map[string]map[string]struct{}),
	}
}

// ReplaceAll atomically swaps the full job set visible for an address.
// No merging: a stale partial view is worse than a full authoritative one.
// Jobs that dropped out of the refresh and are referenced by no other
// address are forgotten; deletion tombstones stay until a present read
// revives the id.
func (c *JobCache) ReplaceAll(owner string, jobs []models.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]struct{}, len(jobs))
	for i := range jobs {
		next[jobs[i].ID] = struct{}{}
		c.jobs[jobs[i].ID] = &entry{job: jobs[i].Clone(), present: true}
	}

	prev := c.owners[owner]
	c.owners[owner] = next

	for id := range prev {
		if _, kept := next[id]; kept {
			continue
		}
		if c.referencedLocked(id) {
			continue
		}
		if e, ok := c.jobs[id]; ok && e.present {
			delete(c.jobs, id)
		}
	}
}

func (c *JobCache) referencedLocked(id string) bool {
	for _, set := range c.owners {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// Get returns the last snapshot for an id, or ok=false if the id is
// unknown to the cache.
func (c *JobCache) Get(id string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Job: e.job.Clone(), Present: e.present}, true
}

// List returns the present jobs visible for an address, newest first.
func (c *JobCache) List(owner string) []models.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Job
	for id := range c.owners[owner] {
		if e, ok := c.jobs[id]; ok && e.present {
			out = append(out, e.job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MarkDeleted records that a read returned "not found" for the id. Sticky:
// only a fresh read returning the job present again (via Reconcile or
// ReplaceAll) revives it, which covers a deletion check that was itself a
// transient misread.
func (c *JobCache) MarkDeleted(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.jobs[id]; ok {
		e.present = false
		return
	}
	c.jobs[id] = &entry{job: models.Job{ID: id}, present: false}
}

// Reconcile applies the authoritative result of a targeted read. A nil job
// means the read confirmed absence.
func (c *JobCache) Reconcile(id string, job *models.Job) {
	if job == nil {
		c.MarkDeleted(id)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[id] = &entry{job: job.Clone(), present: true}
	for _, owner := range []string{job.Submitter, job.Worker} {
		if owner == "" {
			continue
		}
		if set, ok := c.owners[owner]; ok {
			set[id] = struct{}{}
		}
	}
}
