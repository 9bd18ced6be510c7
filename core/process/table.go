package process

import (
	"sync"
	"time"

	"github.com/echokernel/cogkernel/core/kclock"
)

// Table allocates PIDs and owns CognitiveProcess records (spec §4.3).
type Table struct {
	mu    sync.RWMutex
	clock kclock.Clock

	next      Pid
	processes map[Pid]*Process
}

// NewTable constructs an empty Table. clock defaults to the system clock
// if nil.
func NewTable(clock kclock.Clock) *Table {
	if clock == nil {
		clock = kclock.System{}
	}
	return &Table{
		clock:     clock,
		next:      1,
		processes: make(map[Pid]*Process),
	}
}

// Allocate assigns the next PID and initializes a process record with
// defaults: emotion neutral/0.5/0.0/0.5, consciousness level 1, priority
// from config or 5, empty mailbox and working memory. Spec §4.3.
func (t *Table) Allocate(parentPid Pid, cfg Config) Pid {
	t.mu.Lock()
	defer t.mu.Unlock()

	pid := t.next
	t.next++

	priority := cfg.Priority
	if priority <= 0 || priority > 10 {
		priority = 5
	}

	now := t.clock.Now()
	t.processes[pid] = &Process{
		Pid:                pid,
		ParentPid:          parentPid,
		Name:               cfg.Name,
		Role:               cfg.Role,
		State:              StateReady,
		Priority:           priority,
		ConsciousnessLevel: 1,
		Emotion:            DefaultEmotion(),
		WorkingMemory:      nil,
		Mailbox:            nil,
		Created:            now,
	}
	return pid
}

// Get returns the process record for pid, or false if it has never
// existed or has been killed in a prior call (see Kill).
func (t *Table) Get(pid Pid) (*Process, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.processes[pid]
	if !ok || p.State == StateTerminated {
		return nil, false
	}
	return p, true
}

// GetAny returns the process record regardless of state, for callers
// (e.g. the dispatcher's per-process stats updates) that need to observe
// a terminated process one last time.
func (t *Table) GetAny(pid Pid) (*Process, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.processes[pid]
	return p, ok
}

// Kill moves pid to terminated, clears its mailbox and working memory,
// and reports whether a (still-live) process existed. It does not cascade
// to children. Spec §4.3.
func (t *Table) Kill(pid Pid) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.processes[pid]
	if !ok || p.State == StateTerminated {
		return false
	}
	p.State = StateTerminated
	p.Mailbox = nil
	p.WorkingMemory = nil
	return true
}

// List returns a summary of every non-terminated process.
func (t *Table) List() []Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Summary, 0, len(t.processes))
	for _, p := range t.processes {
		if p.State == StateTerminated {
			continue
		}
		out = append(out, p.Summarize())
	}
	return out
}

// Children returns the PIDs whose ParentPid is pid and which are not
// terminated, for drivers (e.g. a KernelAgent) that want to cascade kill.
func (t *Table) Children(pid Pid) []Pid {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Pid
	for _, p := range t.processes {
		if p.ParentPid == pid && p.State != StateTerminated {
			out = append(out, p.Pid)
		}
	}
	return out
}

// Deliver appends msg to target's mailbox, incrementing the target's
// MessagesReceived counter (the sender's count is not touched here).
// Returns false if target does not exist or is terminated.
func (t *Table) Deliver(target Pid, msg ThoughtMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.processes[target]
	if !ok || p.State == StateTerminated {
		return false
	}
	p.Mailbox = append(p.Mailbox, msg)
	p.Stats.MessagesReceived++
	return true
}

// Receive pops the front of pid's mailbox, FIFO. Returns false if empty
// or the process doesn't exist.
func (t *Table) Receive(pid Pid) (ThoughtMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.processes[pid]
	if !ok || p.State == StateTerminated || len(p.Mailbox) == 0 {
		return ThoughtMessage{}, false
	}
	msg := p.Mailbox[0]
	p.Mailbox = p.Mailbox[1:]
	return msg, true
}

// Cycle runs Process.Cycle on pid at the table's current clock time.
func (t *Table) Cycle(pid Pid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.processes[pid]; ok {
		p.Cycle(t.clock.Now())
	}
}

// Touch updates LastScheduled and accumulates CPUTime for pid. The
// scheduler does not call it: Scheduler.Schedule sets LastScheduled
// directly, and CPUTime changes only through Touch.
func (t *Table) Touch(pid Pid, scheduledAt time.Time, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.processes[pid]; ok {
		p.LastScheduled = scheduledAt
		p.CPUTime += elapsed
	}
}
