package atomspace

import "strings"

// Pattern is a query against the store. A leading '?' on Name or an
// Outgoing entry denotes a variable; matching binds the variable to the
// matched name or atom id. Spec §4.1.
type Pattern struct {
	Type         string
	Name         string
	Outgoing     []string
	MinStrength  float64
	MinConfidence float64
	MinAttention float64
}

// Bindings maps variable names (without the leading '?') to the literal
// value they matched.
type Bindings map[string]string

// Match pairs a matching atom with the variable bindings that produced
// the match.
type Match struct {
	Atom     *Atom
	Bindings Bindings
}

func isVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

func varName(s string) string {
	return strings.TrimPrefix(s, "?")
}

// Query performs pattern matching over every atom in the store. Result
// ordering is unspecified (spec §4.1); this implementation returns atoms
// in the store's internal map iteration order.
func (s *AtomStore) Query(p Pattern) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match
	for _, a := range s.atoms {
		if m, ok := matchAtom(a, p); ok {
			out = append(out, m)
		}
	}
	return out
}

func matchAtom(a *Atom, p Pattern) (Match, bool) {
	bindings := Bindings{}

	if p.Type != "" && a.Type != p.Type {
		return Match{}, false
	}

	if p.Name != "" {
		if isVariable(p.Name) {
			if a.Name == "" {
				return Match{}, false
			}
			bindings[varName(p.Name)] = a.Name
		} else if a.Name != p.Name {
			return Match{}, false
		}
	}

	if p.Outgoing != nil {
		if a.Kind != KindLink || len(a.Outgoing) != len(p.Outgoing) {
			return Match{}, false
		}
		for i, want := range p.Outgoing {
			got := a.Outgoing[i]
			if isVariable(want) {
				bindings[varName(want)] = got
			} else if got != want {
				return Match{}, false
			}
		}
	}

	if a.Truth.Strength < p.MinStrength {
		return Match{}, false
	}
	if a.Truth.Confidence < p.MinConfidence {
		return Match{}, false
	}
	if a.Attention < p.MinAttention {
		return Match{}, false
	}

	return Match{Atom: a, Bindings: bindings}, true
}
