// Dispatcher implements the 14 closed cognitive syscalls (spec §4.5), the
// sole entry point by which a cognitive process effects kernel state.
// Grounded on the teacher's orchestration/engine.go ProcessMessage/
// CreateOrchestrationAgent dispatch methods, generalized from a single
// open-ended "message" surface to a closed, exhaustively-matched syscall
// alphabet per spec §9's "dynamic dispatch via string syscall names"
// re-architecting note.
package kernel

import (
	"fmt"
	"time"

	"github.com/echokernel/cogkernel/core/atomspace"
	"github.com/echokernel/cogkernel/core/process"
)

var knownSyscalls = map[string]bool{
	"think": true, "reason": true, "feel": true, "remember": true,
	"forget": true, "attend": true, "spawn_agent": true, "query_knowledge": true,
	"spread_activation": true, "shift_consciousness": true, "allocate_cognitive": true,
	"free_cognitive": true, "send_thought": true, "receive_thought": true,
}

func isKnownSyscall(name string) bool { return knownSyscalls[name] }

// validatePid enforces "any syscall whose first-argument PID does not
// resolve to a live process fails with ESRCH" (spec §4.5). PID 0 is the
// reserved driver/root pseudo-process and is always considered live,
// matching the spec §8 scenario spawn_agent(0, ...) convention.
func (k *Kernel) validatePid(syscall string, pid process.Pid) error {
	if pid == 0 {
		return nil
	}
	if _, ok := k.table.Get(pid); !ok {
		return newErr(syscall, ESRCH, fmt.Sprintf("pid %d is not a live process", pid))
	}
	return nil
}

func (k *Kernel) bumpStats(pid process.Pid) {
	if p, ok := k.table.GetAny(pid); ok {
		p.Stats.SyscallsMade++
	}
	k.nextSyscallCount()
}

// ThinkResult is the success record for think().
type ThinkResult struct {
	AtomID    string
	Timestamp time.Time
}

// Think creates a thought ConceptNode and returns its id. Spec §4.5.
func (k *Kernel) Think(pid process.Pid, input, context any) (ThinkResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("think", pid); err != nil {
		return ThinkResult{}, err
	}
	ts := k.cfg.Clock.Now()
	name := fmt.Sprintf("thought_%d_%d", ts.UnixNano(), pid)
	atom, err := k.replicator.AddNode("ConceptNode", name,
		atomspace.TruthValue{Strength: 0.8, Confidence: 0.9}, 0.7,
		map[string]any{"input": input, "context": context})
	if err != nil {
		return ThinkResult{}, newErr("think", EINVAL, err.Error())
	}
	if p, ok := k.table.GetAny(pid); ok {
		p.Stats.ThoughtsProcessed++
	}
	return ThinkResult{AtomID: atom.ID, Timestamp: ts}, nil
}

// ReasonResult is the success record for reason().
type ReasonResult struct {
	Matches []atomspace.Match
}

// Reason queries an InheritanceLink pattern with outgoing (premise,
// query). premise and query are ConceptNode names, resolved to the atom
// ids a Link's outgoing set actually stores (spec §4.1's addLink
// bare-name resolution) before matching; a name with no corresponding
// ConceptNode cannot appear in any Link outgoing, so the result is an
// empty match list rather than an error. Spec §4.5.
func (k *Kernel) Reason(pid process.Pid, premise, query string) (ReasonResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("reason", pid); err != nil {
		return ReasonResult{}, err
	}
	premiseAtom, ok := k.store.GetNode("ConceptNode", premise)
	if !ok {
		return ReasonResult{Matches: nil}, nil
	}
	queryAtom, ok := k.store.GetNode("ConceptNode", query)
	if !ok {
		return ReasonResult{Matches: nil}, nil
	}
	matches := k.store.Query(atomspace.Pattern{
		Type:     "InheritanceLink",
		Outgoing: []string{premiseAtom.ID, queryAtom.ID},
	})
	return ReasonResult{Matches: matches}, nil
}

// Feel updates the caller's emotion record and writes /emotion/<pid>.
// Spec §4.5.
func (k *Kernel) Feel(pid process.Pid, emotion string, intensity float64) error {
	k.bumpStats(pid)
	if err := k.validatePid("feel", pid); err != nil {
		return err
	}
	if intensity < 0 || intensity > 1 {
		return newErr("feel", EINVAL, "intensity must be in [0,1]")
	}
	p, ok := k.table.Get(pid)
	if !ok {
		return newErr("feel", ESRCH, "process terminated")
	}
	p.Emotion.Type = emotion
	p.Emotion.Intensity = intensity
	k.mu.Lock()
	k.emotionEntries[pid] = p.Emotion
	k.mu.Unlock()
	return nil
}

// RememberResult is the success record for remember().
type RememberResult struct {
	AtomID string
}

// Remember upserts a ConceptNode named key carrying value in metadata.
// Spec §4.5.
func (k *Kernel) Remember(pid process.Pid, key string, value any, importance float64) (RememberResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("remember", pid); err != nil {
		return RememberResult{}, err
	}
	if importance < 0 || importance > 1 {
		return RememberResult{}, newErr("remember", EINVAL, "importance must be in [0,1]")
	}
	atom, err := k.replicator.AddNode("ConceptNode", key,
		atomspace.TruthValue{Strength: importance, Confidence: 0.9}, importance,
		map[string]any{"value": value})
	if err != nil {
		return RememberResult{}, newErr("remember", EINVAL, err.Error())
	}
	return RememberResult{AtomID: atom.ID}, nil
}

// ForgetResult is the success record for forget().
type ForgetResult struct {
	Forgotten bool
	Attention float64
}

// Forget zeroes attention if it is strictly below threshold, otherwise
// halves it. Spec §4.5 and the §8 boundary law (attention == threshold
// does not forget).
func (k *Kernel) Forget(pid process.Pid, key string, threshold float64) (ForgetResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("forget", pid); err != nil {
		return ForgetResult{}, err
	}
	atom, ok := k.store.GetNode("ConceptNode", key)
	if !ok {
		return ForgetResult{}, newErr("forget", ENOENT, "no such key: "+key)
	}
	if atom.Attention < threshold {
		if err := k.replicator.SetAttention(atom.ID, 0); err != nil {
			return ForgetResult{}, newErr("forget", EINVAL, err.Error())
		}
		return ForgetResult{Forgotten: true, Attention: 0}, nil
	}
	newAttn := atom.Attention / 2
	if err := k.replicator.SetAttention(atom.ID, newAttn); err != nil {
		return ForgetResult{}, newErr("forget", EINVAL, err.Error())
	}
	return ForgetResult{Forgotten: false, Attention: newAttn}, nil
}

// Attend sets target's attention to 1.0 and spreads with depth 2.
// Spec §4.5.
func (k *Kernel) Attend(pid process.Pid, target string, spreadFactor float64) error {
	k.bumpStats(pid)
	if err := k.validatePid("attend", pid); err != nil {
		return err
	}
	atom, ok := k.store.GetNode("ConceptNode", target)
	if !ok {
		atom, ok = k.store.GetAtom(target)
	}
	if !ok {
		return newErr("attend", ENOENT, "no such atom: "+target)
	}
	if err := k.replicator.SetAttention(atom.ID, 1.0); err != nil {
		return newErr("attend", EINVAL, err.Error())
	}
	k.store.SpreadAttention(atom.ID, spreadFactor, 2)
	return nil
}

// SpawnResult is the success record for spawn_agent().
type SpawnResult struct {
	Pid     process.Pid
	Summary process.Summary
}

// SpawnAgent allocates a new process and registers it in /proc and
// /agents (both views over the same ProcessTable entry). Spec §4.5.
func (k *Kernel) SpawnAgent(pid process.Pid, cfg process.Config) (SpawnResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("spawn_agent", pid); err != nil {
		return SpawnResult{}, err
	}
	child := k.table.Allocate(pid, cfg)
	p, _ := k.table.Get(child)
	k.sched.Enqueue(p)
	return SpawnResult{Pid: child, Summary: p.Summarize()}, nil
}

// QueryResult is the success record for query_knowledge().
type QueryResult struct {
	Matches []atomspace.Match
}

// QueryKnowledge delegates to AtomStore.Query. Spec §4.5.
func (k *Kernel) QueryKnowledge(pid process.Pid, pattern atomspace.Pattern) (QueryResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("query_knowledge", pid); err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Matches: k.store.Query(pattern)}, nil
}

// SpreadActivation spreads attention depth-3 from the named atom.
// Spec §4.5.
func (k *Kernel) SpreadActivation(pid process.Pid, source string, strength float64) error {
	k.bumpStats(pid)
	if err := k.validatePid("spread_activation", pid); err != nil {
		return err
	}
	atom, ok := k.store.GetNode("ConceptNode", source)
	if !ok {
		atom, ok = k.store.GetAtom(source)
	}
	if !ok {
		return newErr("spread_activation", ENOENT, "no such atom: "+source)
	}
	k.store.SpreadAttention(atom.ID, strength, 3)
	return nil
}

// ShiftConsciousness updates the caller's consciousness level and writes
// /consciousness/<pid>. Spec §4.5.
func (k *Kernel) ShiftConsciousness(pid process.Pid, level int) error {
	k.bumpStats(pid)
	if err := k.validatePid("shift_consciousness", pid); err != nil {
		return err
	}
	if level < 0 || level > 3 {
		return newErr("shift_consciousness", EINVAL, "level must be in {0,1,2,3}")
	}
	p, ok := k.table.Get(pid)
	if !ok {
		return newErr("shift_consciousness", ESRCH, "process terminated")
	}
	p.ConsciousnessLevel = level
	k.mu.Lock()
	k.consciousnessEntries[pid] = level
	k.mu.Unlock()
	return nil
}

// AllocateResult is the success record for allocate_cognitive().
type AllocateResult struct {
	ResourceID string
}

// AllocateCognitive creates a /memory/<id> record owned by the caller.
// Spec §4.5.
func (k *Kernel) AllocateCognitive(pid process.Pid, size int, typ string) (AllocateResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("allocate_cognitive", pid); err != nil {
		return AllocateResult{}, err
	}
	if size < 0 {
		return AllocateResult{}, newErr("allocate_cognitive", EINVAL, "size must be >= 0")
	}
	id := newResourceID()
	k.mu.Lock()
	k.memory[id] = &MemoryResource{ID: id, Owner: pid, Size: size, Type: typ}
	k.mu.Unlock()
	return AllocateResult{ResourceID: id}, nil
}

// FreeCognitive removes a /memory/<id> entry. Spec §4.5.
func (k *Kernel) FreeCognitive(pid process.Pid, resourceID string) error {
	k.bumpStats(pid)
	if err := k.validatePid("free_cognitive", pid); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.memory[resourceID]; !ok {
		return newErr("free_cognitive", ENOENT, "no such resource: "+resourceID)
	}
	delete(k.memory, resourceID)
	return nil
}

// SendThought appends {from, thought, ts} to target's mailbox. Spec §4.5.
func (k *Kernel) SendThought(pid, target process.Pid, thought any) error {
	k.bumpStats(pid)
	if err := k.validatePid("send_thought", pid); err != nil {
		return err
	}
	msg := process.ThoughtMessage{From: pid, Payload: thought, Timestamp: k.cfg.Clock.Now()}
	if !k.table.Deliver(target, msg) {
		return newErr("send_thought", ESRCH, fmt.Sprintf("target pid %d is not a live process", target))
	}
	if p, ok := k.table.GetAny(pid); ok {
		p.Stats.MessagesSent++
	}
	return nil
}

// ReceiveResult is the success record for receive_thought().
type ReceiveResult struct {
	Message *process.ThoughtMessage
}

// ReceiveThought pops the front of the caller's mailbox. blocking=true is
// rejected with EINVAL: spec §9's open question on receive_thought
// blocking semantics is resolved this way because the kernel is
// single-threaded cooperative (spec §5) and has no suspension mechanism
// that doesn't already exist as Scheduler.Block — a blocking variant
// belongs to the driver layer, not the dispatcher.
func (k *Kernel) ReceiveThought(pid process.Pid, blocking bool) (ReceiveResult, error) {
	k.bumpStats(pid)
	if err := k.validatePid("receive_thought", pid); err != nil {
		return ReceiveResult{}, err
	}
	if blocking {
		return ReceiveResult{}, newErr("receive_thought", EINVAL, "blocking receive is not implemented under the cooperative scheduling model")
	}
	msg, ok := k.table.Receive(pid)
	if !ok {
		return ReceiveResult{}, nil
	}
	return ReceiveResult{Message: &msg}, nil
}
