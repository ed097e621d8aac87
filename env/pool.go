package env

import "sync"

// Priority mirrors the BOTTOM..HIGH tiers of the teacher's posix env thread
// pool (original_source/gfs/env/env_posix.cc: Env::Priority::{BOTTOM,LOW,HIGH}).
type Priority int

const (
	Bottom Priority = iota
	Low
	High
	numPriorities
)

// Pool is a bounded background worker pool with priority tiers. Each tier
// has its own job queue and workers, so work scheduled on one tier (skg's
// parallel shard-tree opens use HIGH) is never queued behind another tier's.
type Pool struct {
	tiers [numPriorities]*tier
}

type tier struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// NewPool constructs a Pool with two workers per tier; callers add workers
// to a tier via Resize (skg's loadTrees adds OpenThreads to HIGH).
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.tiers {
		p.tiers[i] = newTier(2)
	}
	return p
}

func newTier(workers int) *tier {
	t := &tier{jobs: make(chan func(), 4096)}
	t.Resize(workers)
	return t
}

// Resize starts `workers` additional workers draining this tier's job
// queue. Workers already running are kept, so a tier's worker count only
// grows; safe to call concurrently with Schedule.
func (t *tier) Resize(workers int) {
	for i := 0; i < workers; i++ {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for job := range t.jobs {
				job()
			}
		}()
	}
}

// Resize adds workers to one priority tier; it never reduces a tier's
// worker count.
func (p *Pool) Resize(pri Priority, workers int) {
	p.tiers[pri].Resize(workers)
}

// Schedule enqueues fn on the given priority tier. Never blocks the caller
// beyond filling the tier's bounded queue.
func (p *Pool) Schedule(pri Priority, fn func()) {
	p.tiers[pri].jobs <- fn
}

// QueueLen reports how many jobs are waiting (not yet started) on a tier.
func (p *Pool) QueueLen(pri Priority) int {
	return len(p.tiers[pri].jobs)
}
