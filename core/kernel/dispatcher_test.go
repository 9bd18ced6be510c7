package kernel

import (
	"strconv"
	"testing"
	"time"

	"github.com/echokernel/cogkernel/core/atomspace"
	"github.com/echokernel/cogkernel/core/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonQueriesInheritanceLinkPattern(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)

	spawned, err := k.SpawnAgent(0, process.Config{Name: "A"})
	require.NoError(t, err)

	_, err = k.replicator.AddLink("InheritanceLink", []string{"cat", "animal"}, atomspace.DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	res, err := k.Reason(spawned.Pid, "cat", "animal")
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
}

func TestAttendSetsAttentionAndSpreads(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)

	spawned, err := k.SpawnAgent(0, process.Config{Name: "A"})
	require.NoError(t, err)

	src, err := k.replicator.AddNode("ConceptNode", "focus", atomspace.DefaultTruthValue(), 0.1, nil)
	require.NoError(t, err)
	link, err := k.replicator.AddLink("InheritanceLink", []string{src.ID, "other"}, atomspace.DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	require.NoError(t, k.Attend(spawned.Pid, "focus", 0.5))

	got, ok := k.store.GetAtom(src.ID)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Attention)

	gotLink, ok := k.store.GetAtom(link.ID)
	require.True(t, ok)
	assert.InDelta(t, 0.5, gotLink.Attention, 1e-9, "link gains spreadFactor * target attention")
}

func TestAttendUnknownAtomReturnsENOENT(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)
	spawned, err := k.SpawnAgent(0, process.Config{Name: "A"})
	require.NoError(t, err)

	err = k.Attend(spawned.Pid, "never-existed", 0.5)
	require.Error(t, err)
	var sErr *SyscallError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, ENOENT, sErr.Errno)
}

func TestSpreadActivationDepthThree(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)
	spawned, err := k.SpawnAgent(0, process.Config{Name: "A"})
	require.NoError(t, err)

	a, err := k.replicator.AddNode("ConceptNode", "a", atomspace.TruthValue{Strength: 1, Confidence: 1}, 0.8, nil)
	require.NoError(t, err)
	b, err := k.replicator.AddNode("ConceptNode", "b", atomspace.DefaultTruthValue(), 0, nil)
	require.NoError(t, err)
	link, err := k.replicator.AddLink("InheritanceLink", []string{a.ID, b.ID}, atomspace.DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	require.NoError(t, k.SpreadActivation(spawned.Pid, "a", 0.5))

	got, _ := k.store.GetAtom(link.ID)
	assert.Greater(t, got.Attention, 0.0)
}

func TestShiftConsciousnessValidatesRange(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)
	spawned, err := k.SpawnAgent(0, process.Config{Name: "A"})
	require.NoError(t, err)

	err = k.ShiftConsciousness(spawned.Pid, 4)
	require.Error(t, err)
	var sErr *SyscallError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, EINVAL, sErr.Errno)

	require.NoError(t, k.ShiftConsciousness(spawned.Pid, 2))
	h := k.Namespace().Open("/consciousness/" + strconv.Itoa(int(spawned.Pid)))
	require.True(t, h.Found)
	assert.Equal(t, 2, h.Value)
}

func TestSendThoughtToDeadPidReturnsESRCH(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)
	a, err := k.SpawnAgent(0, process.Config{Name: "A"})
	require.NoError(t, err)

	err = k.SendThought(a.Pid, process.Pid(999), "hi")
	require.Error(t, err)
	var sErr *SyscallError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, ESRCH, sErr.Errno)
}

func TestSpawnAgentEnqueuesIntoScheduler(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	k := newTestKernel(t, clk)

	res, err := k.SpawnAgent(0, process.Config{Name: "A", Priority: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, k.sched.ReadyLen())
	next := k.sched.Schedule()
	require.NotNil(t, next)
	assert.Equal(t, res.Pid, next.Pid)
}

