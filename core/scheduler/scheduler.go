// Package scheduler implements the kernel's ready/blocked queues and
// consciousness-aware process selection (spec §4.4). Grounded on the
// teacher's core/_echobeats.disabled/scheduler.go EchoBeats priority
// queue, generalized from cognitive *events* to cognitive *processes* and
// fixed to the spec's closed scoring formula instead of EchoBeats' open
// event-priority heuristic.
package scheduler

import (
	"sync"
	"time"

	"github.com/echokernel/cogkernel/core/kclock"
	"github.com/echokernel/cogkernel/core/process"
)

// blockedEntry records why a process was blocked.
type blockedEntry struct {
	reason string
}

// Scheduler multiplexes cognitive processes under one of three policies.
type Scheduler struct {
	mu sync.Mutex

	policy      Policy
	timeQuantum time.Duration
	clock       kclock.Clock

	ready   []*process.Process
	waitAt  map[process.Pid]time.Time
	blocked map[process.Pid]blockedEntry
	seq     int64
	seqOf   map[process.Pid]int64

	current        *process.Process
	lastScheduleAt time.Time
}

// Option configures a new Scheduler.
type Option func(*Scheduler)

// WithTimeQuantum overrides the spec default of 100ms.
func WithTimeQuantum(d time.Duration) Option {
	return func(s *Scheduler) { s.timeQuantum = d }
}

// WithClock injects a Clock for deterministic tests.
func WithClock(c kclock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New constructs a Scheduler under the given policy (default
// ConsciousnessAware per spec §4.4 if an invalid value is passed).
func New(policy Policy, opts ...Option) *Scheduler {
	s := &Scheduler{
		policy:      policy,
		timeQuantum: 100 * time.Millisecond,
		clock:       kclock.System{},
		waitAt:      make(map[process.Pid]time.Time),
		blocked:     make(map[process.Pid]blockedEntry),
		seqOf:       make(map[process.Pid]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue adds p to the ready queue, unless it is terminated. Spec §4.4.
func (s *Scheduler) Enqueue(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(p)
}

func (s *Scheduler) enqueueLocked(p *process.Process) {
	if p.State == process.StateTerminated {
		return
	}
	p.State = process.StateReady
	s.ready = append(s.ready, p)
	if _, waiting := s.waitAt[p.Pid]; !waiting {
		s.waitAt[p.Pid] = s.clock.Now()
		s.seqOf[p.Pid] = s.seq
		s.seq++
	}
}

// removeReadyAt removes and returns the ready-queue entry at index i.
func (s *Scheduler) removeReadyAt(i int) *process.Process {
	p := s.ready[i]
	s.ready = append(s.ready[:i], s.ready[i+1:]...)
	delete(s.waitAt, p.Pid)
	return p
}

func (s *Scheduler) selectReadyIndex() int {
	if len(s.ready) == 0 {
		return -1
	}
	switch s.policy {
	case RoundRobin:
		return 0
	case PriorityPolicy:
		candidates := make([]rankedEntry, len(s.ready))
		for i, p := range s.ready {
			candidates[i] = rankedEntry{seq: s.seqOf[p.Pid], value: float64(p.Priority)}
		}
		return selectByPriority(candidates)
	default: // ConsciousnessAware
		now := s.clock.Now()
		candidates := make([]rankedEntry, len(s.ready))
		for i, p := range s.ready {
			wait := now.Sub(s.waitAt[p.Pid]).Seconds()
			candidates[i] = rankedEntry{seq: s.seqOf[p.Pid], value: score(p, wait)}
		}
		return selectByScore(candidates)
	}
}

// Dequeue removes and returns the next process chosen by policy, or nil
// if the ready queue is empty.
func (s *Scheduler) Dequeue() *process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.selectReadyIndex()
	if idx < 0 {
		return nil
	}
	return s.removeReadyAt(idx)
}

// Schedule implements the scheduling step of spec §4.4:
//  1. if a process is running and within its time quantum, return it;
//  2. otherwise re-enqueue the running process (if any);
//  3. select, run, and return the next ready process;
//  4. if none, return nil (idle).
func (s *Scheduler) Schedule() *process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	if s.current != nil && s.current.State == process.StateRunning &&
		now.Sub(s.lastScheduleAt) < s.timeQuantum {
		return s.current
	}

	if s.current != nil && s.current.State == process.StateRunning {
		s.enqueueLocked(s.current)
		s.current = nil
	}

	idx := s.selectReadyIndex()
	if idx < 0 {
		s.current = nil
		return nil
	}
	next := s.removeReadyAt(idx)
	next.State = process.StateRunning
	s.lastScheduleAt = now
	next.LastScheduled = now
	s.current = next
	return next
}

// Block moves p to blocked, recording reason, and clears currentProcess
// if p was running. Spec §4.4.
func (s *Scheduler) Block(p *process.Process, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.ready {
		if r.Pid == p.Pid {
			s.removeReadyAt(i)
			break
		}
	}
	if s.current != nil && s.current.Pid == p.Pid {
		s.current = nil
	}
	p.State = process.StateBlocked
	s.blocked[p.Pid] = blockedEntry{reason: reason}
}

// Unblock removes p from blocked and re-enqueues it. Spec §4.4.
func (s *Scheduler) Unblock(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocked, p.Pid)
	s.enqueueLocked(p)
}

// BlockReason returns why pid is blocked, if it is.
func (s *Scheduler) BlockReason(pid process.Pid) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.blocked[pid]
	return e.reason, ok
}

// Yield preempts the currently running process to the tail of ready.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	p := s.current
	s.current = nil
	s.enqueueLocked(p)
}

// SetPriority updates p's priority in place; the next selection pass
// picks it up (the priority/consciousness-aware policies re-score on
// every schedule call, so no queue reshuffle is needed here).
func (s *Scheduler) SetPriority(p *process.Process, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Priority = priority
}

// Current returns the currently running process, if any.
func (s *Scheduler) Current() *process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ReadyLen reports the number of processes waiting in ready.
func (s *Scheduler) ReadyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}
