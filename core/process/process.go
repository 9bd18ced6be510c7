// Package process implements the kernel's process table: CognitiveProcess
// records and their lifecycle, grounded on the teacher's per-identity
// emotional/working-memory fields in core/deeptreeecho/identity.go,
// generalized from a singleton Identity to a population of processes
// addressed by PID.
package process

import (
	"time"
)

// Pid uniquely, monotonically identifies a process for the life of the
// kernel. PIDs are never recycled (spec §3).
type Pid int

// State is a process's lifecycle state.
type State int

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Emotion is a process's affective state, per spec §3.
type Emotion struct {
	Type      string
	Intensity float64 // [0,1]
	Valence   float64 // [-1,1]
	Arousal   float64 // [0,1]
}

// DefaultEmotion is the baseline assigned to a newly-allocated process.
func DefaultEmotion() Emotion {
	return Emotion{Type: "neutral", Intensity: 0.5, Valence: 0.0, Arousal: 0.5}
}

// WorkingMemoryItem is one time-stamped entry in a process's bounded
// working-memory sequence.
type WorkingMemoryItem struct {
	Payload   any
	Timestamp time.Time
}

// ThoughtMessage is one inbound IPC message (spec §3).
type ThoughtMessage struct {
	From      Pid
	Payload   any
	Timestamp time.Time
}

// Stats are per-process counters (spec §3).
type Stats struct {
	SyscallsMade      uint64
	ThoughtsProcessed uint64
	MessagesSent      uint64
	MessagesReceived  uint64
}

// Config customizes a newly-allocated process, per spec §4.3.
type Config struct {
	Name     string
	Role     string
	Priority int // 1..10 kept as given; 0 or any value outside [1,10] becomes 5
}

// AttentionFocus is a weak reference to an atom the process is currently
// attending to (an opaque atom UUID, spec §3).
type AttentionFocus struct {
	AtomID string
	Set    bool
}

// workingMemoryCap bounds the working-memory sequence length; prune-by-age
// (5 minute cutoff, spec §4.3) is the primary bound, this is a hard backstop.
const workingMemoryCap = 1024

// workingMemoryTTL is the cutoff after which cycle() prunes stale entries.
const workingMemoryTTL = 5 * time.Minute

// Process is a CognitiveProcess record (spec §3). Exported fields are
// owned exclusively by the ProcessTable; external callers hold only a Pid.
type Process struct {
	Pid                Pid
	ParentPid          Pid
	Name               string
	Role               string
	State              State
	Priority           int
	ConsciousnessLevel int // {0,1,2,3}

	Emotion Emotion
	Focus   AttentionFocus

	WorkingMemory []WorkingMemoryItem
	Mailbox       []ThoughtMessage

	Stats Stats

	LastScheduled time.Time
	CPUTime       time.Duration
	Created       time.Time
}

// Cycle drains the mailbox into working memory, applies emotional decay,
// and prunes stale working-memory entries. A no-op on a non-running
// process. Spec §4.3.
func (p *Process) Cycle(now time.Time) {
	if p.State != StateRunning {
		return
	}

	for _, msg := range p.Mailbox {
		p.WorkingMemory = append(p.WorkingMemory, WorkingMemoryItem{
			Payload:   msg.Payload,
			Timestamp: msg.Timestamp,
		})
	}
	p.Mailbox = nil

	if p.Emotion.Intensity > 0.3 {
		p.Emotion.Intensity *= 0.98
	}
	if absf(p.Emotion.Valence) > 0.1 {
		p.Emotion.Valence *= 0.95
	}

	cutoff := now.Add(-workingMemoryTTL)
	kept := p.WorkingMemory[:0]
	for _, item := range p.WorkingMemory {
		if item.Timestamp.After(cutoff) {
			kept = append(kept, item)
		}
	}
	if len(kept) > workingMemoryCap {
		kept = kept[len(kept)-workingMemoryCap:]
	}
	p.WorkingMemory = kept
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Summary is the read-only view returned by ProcessTable.List and exposed
// through the Namespace (spec §4.3, §4.6).
type Summary struct {
	Pid                Pid
	ParentPid          Pid
	Name               string
	Role               string
	State              State
	Priority           int
	ConsciousnessLevel int
	Emotion            Emotion
	Stats              Stats
	LastScheduled      time.Time
}

func (p *Process) Summarize() Summary {
	return Summary{
		Pid: p.Pid, ParentPid: p.ParentPid, Name: p.Name, Role: p.Role,
		State: p.State, Priority: p.Priority, ConsciousnessLevel: p.ConsciousnessLevel,
		Emotion: p.Emotion, Stats: p.Stats, LastScheduled: p.LastScheduled,
	}
}
