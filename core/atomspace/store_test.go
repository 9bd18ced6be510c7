package atomspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestStore() (*AtomStore, *fakeClock) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return NewAtomStore(WithClock(clk)), clk
}

func TestAddNodeIsIdempotentByTypeName(t *testing.T) {
	s, _ := newTestStore()

	a1, err := s.AddNode("ConceptNode", "dog", TruthValue{Strength: 0.5, Confidence: 0.5}, 0.1, nil)
	require.NoError(t, err)

	a2, err := s.AddNode("ConceptNode", "dog", TruthValue{Strength: 0.9, Confidence: 0.8}, 0.4, nil)
	require.NoError(t, err)

	assert.Equal(t, a1.ID, a2.ID, "second AddNode must upsert, not create")
	assert.Equal(t, TruthValue{Strength: 0.9, Confidence: 0.8}, a2.Truth)
	assert.Equal(t, 0.4, a2.Attention)

	st := s.Stats()
	assert.Equal(t, 1, st.AtomCount)
	assert.Equal(t, 1, st.NodeCount)
}

func TestAddLinkResolvesBareNamesAndDedupes(t *testing.T) {
	s, _ := newTestStore()

	link1, err := s.AddLink("InheritanceLink", []string{"cat", "animal"}, DefaultTruthValue(), 0.2, nil)
	require.NoError(t, err)

	cat, ok := s.GetNode("ConceptNode", "cat")
	require.True(t, ok)
	animal, ok := s.GetNode("ConceptNode", "animal")
	require.True(t, ok)
	assert.Equal(t, []string{cat.ID, animal.ID}, link1.Outgoing)

	link2, err := s.AddLink("InheritanceLink", []string{"cat", "animal"}, TruthValue{Strength: 0.1, Confidence: 0.1}, 0.9, nil)
	require.NoError(t, err)
	assert.Equal(t, link1.ID, link2.ID, "duplicate outgoing must return the existing link")
}

func TestAddLinkAutoCreatesBareConceptNodeNames(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.AddLink("InheritanceLink", []string{"bogus-but-not-a-uuid"}, DefaultTruthValue(), 0, nil)
	require.NoError(t, err)
	_, ok := s.GetNode("ConceptNode", "bogus-but-not-a-uuid")
	assert.True(t, ok)

	_, err = s.AddLink("InheritanceLink", []string{}, DefaultTruthValue(), 0, nil)
	require.Error(t, err)
}

func TestAddLinkInvalidReferenceForUnownedUUID(t *testing.T) {
	s, _ := newTestStore()
	node, err := s.AddNode("ConceptNode", "real", DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	_, err = s.AddLink("InheritanceLink", []string{node.ID, "00000000-0000-0000-0000-000000000000"}, DefaultTruthValue(), 0, nil)
	require.Error(t, err, "a well-formed UUID not owned by the store is an InvalidReference, not a bare name")
	var invalidRef *InvalidReference
	assert.ErrorAs(t, err, &invalidRef)
}

func TestAddNodeStoresGivenAttention(t *testing.T) {
	s, _ := newTestStore()
	node, err := s.AddNode("ConceptNode", "k", DefaultTruthValue(), 0.5, nil)
	require.NoError(t, err)
	require.Equal(t, 0.5, node.Attention)
}

func TestSpreadAttentionDepthZeroIsNoop(t *testing.T) {
	s, _ := newTestStore()
	a, _ := s.AddNode("ConceptNode", "a", DefaultTruthValue(), 0.5, nil)
	b, _ := s.AddNode("ConceptNode", "b", DefaultTruthValue(), 0.1, nil)
	link, err := s.AddLink("InheritanceLink", []string{a.ID, b.ID}, DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	s.SpreadAttention(a.ID, 0.5, 0)
	got, _ := s.GetAtom(link.ID)
	assert.Equal(t, 0.0, got.Attention)
}

func TestSpreadAttentionRaisesContainingLinks(t *testing.T) {
	s, _ := newTestStore()
	a, _ := s.AddNode("ConceptNode", "a", DefaultTruthValue(), 0.8, nil)
	b, _ := s.AddNode("ConceptNode", "b", DefaultTruthValue(), 0.1, nil)
	link, err := s.AddLink("InheritanceLink", []string{a.ID, b.ID}, DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	s.SpreadAttention(a.ID, 0.5, 1)
	got, _ := s.GetAtom(link.ID)
	assert.InDelta(t, 0.4, got.Attention, 1e-9)
}

func TestDecayAttentionScalesEveryAtom(t *testing.T) {
	s := NewAtomStore(WithAttentionDecay(0.5))
	a, _ := s.AddNode("ConceptNode", "a", DefaultTruthValue(), 0.8, nil)

	s.DecayAttention()
	got, _ := s.GetAtom(a.ID)
	assert.InDelta(t, 0.4, got.Attention, 1e-9)
}

func TestGetTopAttentionOrdersDescending(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.AddNode("ConceptNode", "low", DefaultTruthValue(), 0.1, nil)
	_, _ = s.AddNode("ConceptNode", "high", DefaultTruthValue(), 0.9, nil)
	_, _ = s.AddNode("ConceptNode", "mid", DefaultTruthValue(), 0.5, nil)

	top := s.GetTopAttention(2)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].Name)
	assert.Equal(t, "mid", top[1].Name)
}

func TestRecordEntelechyFailureUsesFixedConstants(t *testing.T) {
	s, _ := newTestStore()
	link, err := s.RecordEntelechyFailure("boundary breach", 0.3)
	require.NoError(t, err)
	assert.Equal(t, TruthValue{Strength: 0.99, Confidence: 0.95}, link.Truth)
	assert.Equal(t, 0.95, link.Attention)
}

func TestRecordTranscendUsesFixedConstants(t *testing.T) {
	s, _ := newTestStore()
	link, err := s.RecordTranscend("reached fixed point")
	require.NoError(t, err)
	assert.Equal(t, TruthValue{Strength: 0.99, Confidence: 0.95}, link.Truth)
	assert.Equal(t, 0.95, link.Attention)
}

func TestAddNodeRejectsPastCapacity(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewAtomStore(WithClock(clk), WithCapacity(1))

	_, err := s.AddNode("ConceptNode", "first", DefaultTruthValue(), 0.1, nil)
	require.NoError(t, err)

	_, err = s.AddNode("ConceptNode", "second", DefaultTruthValue(), 0.1, nil)
	var capErr *CapacityExceeded
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Capacity)

	// Upserting the existing atom is exempt from the capacity check.
	_, err = s.AddNode("ConceptNode", "first", TruthValue{Strength: 0.5, Confidence: 0.5}, 0.2, nil)
	require.NoError(t, err)
}

func TestAddLinkRejectsPastCapacity(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewAtomStore(WithClock(clk), WithCapacity(2))

	a, err := s.AddNode("ConceptNode", "alpha", DefaultTruthValue(), 0.1, nil)
	require.NoError(t, err)
	b, err := s.AddNode("ConceptNode", "beta", DefaultTruthValue(), 0.1, nil)
	require.NoError(t, err)

	_, err = s.AddLink("InheritanceLink", []string{a.ID, b.ID}, DefaultTruthValue(), 0.1, nil)
	var capErr *CapacityExceeded
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Capacity)
}

func TestVersionVectorMergeIsPointwiseMax(t *testing.T) {
	a := VersionVector{"n1": 3, "n2": 1}
	b := VersionVector{"n1": 2, "n2": 5, "n3": 1}
	merged := a.Merge(b)
	assert.Equal(t, VersionVector{"n1": 3, "n2": 5, "n3": 1}, merged)
}
