package atomspace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestQueryMatchesLiteralTypeAndName(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.AddNode("ConceptNode", "dog", DefaultTruthValue(), 0.5, nil)
	_, _ = s.AddNode("ConceptNode", "cat", DefaultTruthValue(), 0.5, nil)

	matches := s.Query(Pattern{Type: "ConceptNode", Name: "dog"})
	require.Len(t, matches, 1)
	require.Equal(t, "dog", matches[0].Atom.Name)
}

func TestQueryBindsVariableName(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.AddNode("ConceptNode", "dog", DefaultTruthValue(), 0.5, nil)
	_, _ = s.AddNode("ConceptNode", "cat", DefaultTruthValue(), 0.5, nil)

	matches := s.Query(Pattern{Type: "ConceptNode", Name: "?who"})
	names := map[string]bool{}
	for _, m := range matches {
		names[m.Bindings["who"]] = true
	}
	want := map[string]bool{"dog": true, "cat": true}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("bound names mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryOutgoingPositionalMatchAndBind(t *testing.T) {
	s, _ := newTestStore()
	cat, _ := s.AddNode("ConceptNode", "cat", DefaultTruthValue(), 0, nil)
	animal, _ := s.AddNode("ConceptNode", "animal", DefaultTruthValue(), 0, nil)
	_, err := s.AddLink("InheritanceLink", []string{cat.ID, animal.ID}, DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	matches := s.Query(Pattern{Type: "InheritanceLink", Outgoing: []string{cat.ID, "?parent"}})
	require.Len(t, matches, 1)
	require.Equal(t, animal.ID, matches[0].Bindings["parent"])
}

func TestQueryOutgoingLengthMismatchExcludes(t *testing.T) {
	s, _ := newTestStore()
	cat, _ := s.AddNode("ConceptNode", "cat", DefaultTruthValue(), 0, nil)
	animal, _ := s.AddNode("ConceptNode", "animal", DefaultTruthValue(), 0, nil)
	_, err := s.AddLink("InheritanceLink", []string{cat.ID, animal.ID}, DefaultTruthValue(), 0, nil)
	require.NoError(t, err)

	matches := s.Query(Pattern{Type: "InheritanceLink", Outgoing: []string{cat.ID}})
	require.Empty(t, matches)
}

func TestQueryThresholdsAreInclusiveLowerBounds(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.AddNode("ConceptNode", "exact", TruthValue{Strength: 0.5, Confidence: 0.5}, 0.5, nil)

	matches := s.Query(Pattern{MinStrength: 0.5, MinConfidence: 0.5, MinAttention: 0.5})
	require.Len(t, matches, 1, "equal-to-threshold values must match (inclusive lower bound)")

	none := s.Query(Pattern{MinStrength: 0.51})
	require.Empty(t, none)
}
