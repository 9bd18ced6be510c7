// Package kernel ties the AtomStore, Replicator, ProcessTable, Scheduler,
// Dispatcher and Namespace into the single cognitive-kernel runtime
// described by spec §2: "Control flow is strictly top-down... no lower
// layer ever calls into an upper layer." Grounded on the teacher's
// orchestration/engine.go Engine, which plays the same "owns everything,
// exposes one surface" role for its agent population.
package kernel

import (
	"log/slog"
	"sync"

	"github.com/echokernel/cogkernel/core/atomspace"
	"github.com/echokernel/cogkernel/core/kclock"
	"github.com/echokernel/cogkernel/core/process"
	"github.com/echokernel/cogkernel/core/scheduler"
	"github.com/google/uuid"
)

// MemoryResource is a `/memory/<id>` entry created by allocate_cognitive
// and removed by free_cognitive, spec §4.5.
type MemoryResource struct {
	ID    string
	Owner process.Pid
	Size  int
	Type  string
}

// Kernel wires together every L0/L1/L2 component and is the sole handle
// a driver or agent collaborator holds (spec §9: "pass an explicit kernel
// handle... no ambient state").
type Kernel struct {
	mu sync.Mutex

	cfg Config
	log *slog.Logger

	store      *atomspace.AtomStore
	replicator *atomspace.Replicator
	table      *process.Table
	sched      *scheduler.Scheduler

	syscallCount uint64
	memory       map[string]*MemoryResource

	// namespace side-tables, written synchronously by the same handlers
	// that cause them (spec §4.6, §5 "namespace mappings are updated
	// synchronously").
	emotionEntries       map[process.Pid]process.Emotion
	consciousnessEntries map[process.Pid]int
}

// New constructs a Kernel from cfg, filling in any zero-valued field with
// the spec §6 default.
func New(cfg Config) *Kernel {
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = DefaultConfig(cfg.NodeID).SyncInterval
	}
	if cfg.TimeQuantum == 0 {
		cfg.TimeQuantum = DefaultConfig(cfg.NodeID).TimeQuantum
	}
	if cfg.AttentionDecay == 0 {
		cfg.AttentionDecay = DefaultConfig(cfg.NodeID).AttentionDecay
	}
	if cfg.AtomCapacity == 0 {
		cfg.AtomCapacity = DefaultConfig(cfg.NodeID).AtomCapacity
	}
	if cfg.Transport == nil {
		cfg.Transport = atomspace.NewInMemoryTransport()
	}
	if cfg.Clock == nil {
		cfg.Clock = kclock.System{}
	}
	if cfg.Random == nil {
		cfg.Random = kclock.NewMathRandom(1)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Personality == nil {
		cfg.Personality = NopPersonality{}
	}

	store := atomspace.NewAtomStore(
		atomspace.WithClock(cfg.Clock),
		atomspace.WithAttentionDecay(cfg.AttentionDecay),
		atomspace.WithCapacity(cfg.AtomCapacity),
	)
	repl := atomspace.NewReplicator(store, cfg.NodeID, cfg.Transport,
		atomspace.WithSyncInterval(cfg.SyncInterval),
		atomspace.WithReplicatorClock(cfg.Clock),
	)
	table := process.NewTable(cfg.Clock)
	sched := scheduler.New(cfg.SchedulerPolicy,
		scheduler.WithTimeQuantum(cfg.TimeQuantum),
		scheduler.WithClock(cfg.Clock),
	)

	k := &Kernel{
		cfg:                  cfg,
		log:                  cfg.Logger,
		store:                store,
		replicator:           repl,
		table:                table,
		sched:                sched,
		memory:               make(map[string]*MemoryResource),
		emotionEntries:       make(map[process.Pid]process.Emotion),
		consciousnessEntries: make(map[process.Pid]int),
	}
	k.log.Info("kernel constructed", "node_id", cfg.NodeID, "policy", cfg.SchedulerPolicy)
	return k
}

// Store exposes the AtomStore for introspection (spec §4.6 "/atomspace
// returns the AtomStore itself"). Mutations must still go through
// syscalls; callers should treat the returned value as read-only.
func (k *Kernel) Store() *atomspace.AtomStore { return k.store }

// Replicator exposes the replication layer for drivers that need to call
// Sync, JoinCluster, or AddPeer directly.
func (k *Kernel) Replicator() *atomspace.Replicator { return k.replicator }

// Scheduler exposes the scheduler for drivers that own the cooperative
// run loop (calling Schedule()/Cycle() between syscalls).
func (k *Kernel) Scheduler() *scheduler.Scheduler { return k.sched }

// Table exposes the process table for read-only driver inspection.
func (k *Kernel) Table() *process.Table { return k.table }

// Namespace constructs a read-only Namespace view over this kernel.
func (k *Kernel) Namespace() *Namespace { return &Namespace{k: k} }

func (k *Kernel) nextSyscallCount() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.syscallCount++
	return k.syscallCount
}

// SyscallCount reports the kernel-wide syscall counter (spec §4.5: "Every
// call increments... the kernel-wide syscall counter").
func (k *Kernel) SyscallCount() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.syscallCount
}

// Ps lists every live process, for the agent-layer ps() surface (spec §6).
func (k *Kernel) Ps() []process.Summary {
	return k.table.List()
}

// Kill terminates pid without cascading to children; the caller decides
// whether to cascade (spec §4.3). It also clears this kernel's namespace
// side-tables for pid.
func (k *Kernel) Kill(pid process.Pid) bool {
	ok := k.table.Kill(pid)
	if ok {
		k.mu.Lock()
		delete(k.emotionEntries, pid)
		delete(k.consciousnessEntries, pid)
		k.mu.Unlock()
	}
	return ok
}

// KillCascade implements the KernelAgent collaborator's specified
// behavior (spec §4.3: "The KernelAgent collaborator is specified to
// cascade"): kill pid and every descendant, breadth-first, removing all
// namespace entries for each. Returns the PIDs actually terminated.
func (k *Kernel) KillCascade(pid process.Pid) []process.Pid {
	var killed []process.Pid
	queue := []process.Pid{pid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children := k.table.Children(cur)
		queue = append(queue, children...)
		if k.Kill(cur) {
			killed = append(killed, cur)
		}
	}
	return killed
}

// newResourceID mints an id for allocate_cognitive, grounded on the same
// uuid.NewString identity scheme used for atoms.
func newResourceID() string { return uuid.NewString() }
