package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestAllocateAssignsMonotonicPids(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})

	p1 := tbl.Allocate(0, Config{Name: "A"})
	p2 := tbl.Allocate(0, Config{Name: "B"})
	p3 := tbl.Allocate(p1, Config{Name: "C"})

	assert.Equal(t, Pid(1), p1)
	assert.Equal(t, Pid(2), p2)
	assert.Equal(t, Pid(3), p3)
}

func TestAllocateDefaultsAndClamps(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})

	pid := tbl.Allocate(0, Config{Name: "A", Priority: 0})
	proc, ok := tbl.Get(pid)
	require.True(t, ok)
	assert.Equal(t, 5, proc.Priority, "zero priority defaults to 5")
	assert.Equal(t, 1, proc.ConsciousnessLevel)
	assert.Equal(t, DefaultEmotion(), proc.Emotion)
	assert.Empty(t, proc.Mailbox)
	assert.Empty(t, proc.WorkingMemory)

	pid2 := tbl.Allocate(0, Config{Name: "B", Priority: 99})
	proc2, _ := tbl.Get(pid2)
	assert.Equal(t, 5, proc2.Priority, "out-of-range priority defaults to 5")
}

func TestKillClearsMailboxAndWorkingMemoryAndNeverRecycles(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})
	pid := tbl.Allocate(0, Config{Name: "A"})
	proc, _ := tbl.Get(pid)
	proc.Mailbox = append(proc.Mailbox, ThoughtMessage{From: 99, Payload: "hi"})
	proc.WorkingMemory = append(proc.WorkingMemory, WorkingMemoryItem{Payload: "x"})

	require.True(t, tbl.Kill(pid))
	_, ok := tbl.Get(pid)
	assert.False(t, ok, "killed process must not be returned by Get")

	require.False(t, tbl.Kill(pid), "killing an already-terminated pid returns false")

	next := tbl.Allocate(0, Config{Name: "B"})
	assert.NotEqual(t, pid, next, "PIDs are never recycled")
}

func TestListExcludesTerminated(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})
	a := tbl.Allocate(0, Config{Name: "A"})
	_ = tbl.Allocate(0, Config{Name: "B"})
	tbl.Kill(a)

	list := tbl.List()
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Name)
}

func TestChildrenExcludesTerminated(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})
	parent := tbl.Allocate(0, Config{Name: "P"})
	c1 := tbl.Allocate(parent, Config{Name: "C1"})
	c2 := tbl.Allocate(parent, Config{Name: "C2"})
	tbl.Kill(c2)

	children := tbl.Children(parent)
	assert.ElementsMatch(t, []Pid{c1}, children)
}

func TestDeliverAndReceiveFIFO(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})
	a := tbl.Allocate(0, Config{Name: "A"})
	b := tbl.Allocate(0, Config{Name: "B"})

	require.True(t, tbl.Deliver(b, ThoughtMessage{From: a, Payload: "m1"}))
	require.True(t, tbl.Deliver(b, ThoughtMessage{From: a, Payload: "m2"}))

	msg1, ok := tbl.Receive(b)
	require.True(t, ok)
	assert.Equal(t, "m1", msg1.Payload)

	msg2, ok := tbl.Receive(b)
	require.True(t, ok)
	assert.Equal(t, "m2", msg2.Payload)

	_, ok = tbl.Receive(b)
	assert.False(t, ok, "third receive on an empty mailbox returns false")
}

func TestDeliverToTerminatedReturnsFalse(t *testing.T) {
	tbl := NewTable(&fakeClock{now: time.Unix(0, 0)})
	a := tbl.Allocate(0, Config{Name: "A"})
	tbl.Kill(a)
	assert.False(t, tbl.Deliver(a, ThoughtMessage{Payload: "x"}))
}

func TestCycleDrainsMailboxAndDecaysEmotion(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	tbl := NewTable(clk)
	pid := tbl.Allocate(0, Config{Name: "A"})
	proc, _ := tbl.Get(pid)
	proc.State = StateRunning
	proc.Emotion.Intensity = 0.9
	proc.Emotion.Valence = -0.5
	proc.Mailbox = append(proc.Mailbox, ThoughtMessage{From: 2, Payload: "hi", Timestamp: clk.now})

	tbl.Cycle(pid)

	assert.Empty(t, proc.Mailbox)
	require.Len(t, proc.WorkingMemory, 1)
	assert.InDelta(t, 0.9*0.98, proc.Emotion.Intensity, 1e-9)
	assert.InDelta(t, -0.5*0.95, proc.Emotion.Valence, 1e-9)
}

func TestCycleIsNoopWhenNotRunning(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	tbl := NewTable(clk)
	pid := tbl.Allocate(0, Config{Name: "A"})
	proc, _ := tbl.Get(pid)
	proc.Mailbox = append(proc.Mailbox, ThoughtMessage{Payload: "hi"})

	tbl.Cycle(pid)
	assert.Len(t, proc.Mailbox, 1, "cycle on a non-running process must not drain the mailbox")
}

func TestCyclePrunesStaleWorkingMemory(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	tbl := NewTable(clk)
	pid := tbl.Allocate(0, Config{Name: "A"})
	proc, _ := tbl.Get(pid)
	proc.State = StateRunning
	proc.WorkingMemory = append(proc.WorkingMemory, WorkingMemoryItem{Payload: "stale", Timestamp: clk.now})

	clk.advance(10 * time.Minute)
	tbl.Cycle(pid)

	assert.Empty(t, proc.WorkingMemory, "entries older than the 5-minute TTL are pruned")
}
