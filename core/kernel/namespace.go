package kernel

import (
	"strconv"
	"strings"

	"github.com/echokernel/cogkernel/core/process"
)

// Handle is the result of a Namespace.Open call. A missing path returns
// Found=false with a human-readable Reason (spec §4.6), never an error.
type Handle struct {
	Path   string
	Value  any
	Found  bool
	Reason string
}

// SyscallRef is what `/cognitive/<name>` resolves to: a pointer at a
// syscall name, not a callable value (spec §4.6: "returns a handle
// pointing at a syscall"). Invoking it means calling the matching Kernel
// syscall method (Think, Reason, ...).
type SyscallRef struct {
	Name string
}

// Namespace is the kernel's read-only hierarchical lookup (spec §4.6).
// Every root is recognized: /proc, /cognitive, /atomspace, /agents,
// /memory, /consciousness, /emotion, /reservoir. Only /atomspace resolves
// on its own; the others resolve only with a leaf segment beneath them,
// and /reservoir never resolves.
type Namespace struct {
	k *Kernel
}

// Open resolves a '/'-separated path. Recognized roots: proc, cognitive,
// atomspace, agents, memory, consciousness, emotion, reservoir.
func (n *Namespace) Open(path string) Handle {
	segs := splitPath(path)
	if len(segs) == 0 {
		return Handle{Path: path, Found: false, Reason: "empty path"}
	}

	switch segs[0] {
	case "proc":
		return n.openProc(path, segs)
	case "cognitive":
		return n.openCognitive(path, segs)
	case "atomspace":
		return Handle{Path: path, Value: n.k.store, Found: true}
	case "agents":
		return n.openProc(path, segs) // /agents/<pid> mirrors /proc/<pid>
	case "memory":
		return n.openMemory(path, segs)
	case "consciousness":
		return n.openConsciousness(path, segs)
	case "emotion":
		return n.openEmotion(path, segs)
	case "reservoir":
		// Out of scope: the reservoir is an external collaborator (spec
		// §1); the kernel exposes the root but never populates it.
		return Handle{Path: path, Found: false, Reason: "reservoir is an external collaborator; no kernel-owned entries exist"}
	default:
		return Handle{Path: path, Found: false, Reason: "unknown namespace root: " + segs[0]}
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (n *Namespace) openProc(path string, segs []string) Handle {
	if len(segs) < 2 {
		return Handle{Path: path, Found: false, Reason: "missing pid segment"}
	}
	pidNum, err := strconv.Atoi(segs[1])
	if err != nil {
		return Handle{Path: path, Found: false, Reason: "invalid pid: " + segs[1]}
	}
	p, ok := n.k.table.Get(process.Pid(pidNum))
	if !ok {
		return Handle{Path: path, Found: false, Reason: "no such process"}
	}
	return Handle{Path: path, Value: p.Summarize(), Found: true}
}

func (n *Namespace) openCognitive(path string, segs []string) Handle {
	if len(segs) < 2 {
		return Handle{Path: path, Found: false, Reason: "missing syscall name"}
	}
	name := segs[1]
	if !isKnownSyscall(name) {
		return Handle{Path: path, Found: false, Reason: "unknown syscall: " + name}
	}
	return Handle{Path: path, Value: SyscallRef{Name: name}, Found: true}
}

func (n *Namespace) openMemory(path string, segs []string) Handle {
	if len(segs) < 2 {
		return Handle{Path: path, Found: false, Reason: "missing resource id"}
	}
	n.k.mu.Lock()
	res, ok := n.k.memory[segs[1]]
	n.k.mu.Unlock()
	if !ok {
		return Handle{Path: path, Found: false, Reason: "no such resource"}
	}
	return Handle{Path: path, Value: *res, Found: true}
}

func (n *Namespace) openConsciousness(path string, segs []string) Handle {
	if len(segs) < 2 {
		return Handle{Path: path, Found: false, Reason: "missing pid segment"}
	}
	pidNum, err := strconv.Atoi(segs[1])
	if err != nil {
		return Handle{Path: path, Found: false, Reason: "invalid pid: " + segs[1]}
	}
	n.k.mu.Lock()
	level, ok := n.k.consciousnessEntries[process.Pid(pidNum)]
	n.k.mu.Unlock()
	if !ok {
		return Handle{Path: path, Found: false, Reason: "no consciousness entry recorded"}
	}
	return Handle{Path: path, Value: level, Found: true}
}

func (n *Namespace) openEmotion(path string, segs []string) Handle {
	if len(segs) < 2 {
		return Handle{Path: path, Found: false, Reason: "missing pid segment"}
	}
	pidNum, err := strconv.Atoi(segs[1])
	if err != nil {
		return Handle{Path: path, Found: false, Reason: "invalid pid: " + segs[1]}
	}
	n.k.mu.Lock()
	emo, ok := n.k.emotionEntries[process.Pid(pidNum)]
	n.k.mu.Unlock()
	if !ok {
		return Handle{Path: path, Found: false, Reason: "no emotion entry recorded"}
	}
	return Handle{Path: path, Value: emo, Found: true}
}
