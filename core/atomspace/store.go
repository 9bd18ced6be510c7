package atomspace

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/echokernel/cogkernel/core/kclock"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// Clock abstracts wall-clock time so tests can inject determinism (spec §6).
type Clock = kclock.Clock

type systemClock = kclock.System

// Stats summarizes the store's current contents.
type Stats struct {
	AtomCount int
	NodeCount int
	LinkCount int
	Created   time.Time
	Modified  time.Time
}

// AtomStore owns every atom, the type/name indices, and attention
// bookkeeping. Grounded on the teacher's AtomSpace
// (core/_opencog.disabled/atomspace.go), generalized to the spec's plain
// float64 attention model and UUID identity.
type AtomStore struct {
	mu sync.RWMutex

	clock Clock

	atoms      map[string]*Atom
	byNodeName map[string]string // "type\x00name" -> atom id
	byLinkKey  map[string]string // "type\x00sha1(outgoing)" -> atom id

	attentionDecay float64
	capacity       int // 0 means unbounded

	created  time.Time
	modified time.Time
}

// Option configures a new AtomStore.
type Option func(*AtomStore)

// WithClock injects a Clock, defaulting to the system clock.
func WithClock(c Clock) Option {
	return func(s *AtomStore) { s.clock = c }
}

// WithAttentionDecay sets the multiplicative decay factor used by
// DecayAttention, overriding the spec default of 0.995.
func WithAttentionDecay(factor float64) Option {
	return func(s *AtomStore) { s.attentionDecay = factor }
}

// WithCapacity bounds the number of distinct atoms the store will hold
// (spec §6 "atom capacity"); AddNode/AddLink return CapacityExceeded
// rather than create a new atom past this bound. capacity <= 0 means
// unbounded, which is also the zero-value default.
func WithCapacity(capacity int) Option {
	return func(s *AtomStore) { s.capacity = capacity }
}

// atCapacity reports whether creating one more distinct atom would exceed
// the configured bound. Callers hold s.mu.
func (s *AtomStore) atCapacity() bool {
	return s.capacity > 0 && len(s.atoms) >= s.capacity
}

// NewAtomStore constructs an empty AtomStore.
func NewAtomStore(opts ...Option) *AtomStore {
	now := time.Now()
	s := &AtomStore{
		clock:          systemClock{},
		atoms:          make(map[string]*Atom),
		byNodeName:     make(map[string]string),
		byLinkKey:      make(map[string]string),
		attentionDecay: 0.995,
		created:        now,
		modified:       now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func nodeKey(typ, name string) string {
	return typ + "\x00" + name
}

func linkKey(typ string, outgoing []string) string {
	h := sha1.New()
	for _, id := range outgoing {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return typ + "\x00" + hex.EncodeToString(h.Sum(nil))
}

// AddNode is idempotent by (type, name): a matching Node has its truth
// and attention overwritten and is returned as-is; otherwise a new Node
// is created. Spec §4.1.
func (s *AtomStore) AddNode(typ, name string, tv TruthValue, attention float64, metadata map[string]any) (*Atom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	key := nodeKey(typ, name)

	if id, ok := s.byNodeName[key]; ok {
		atom := s.atoms[id]
		atom.Truth = tv
		atom.Attention = clamp01(attention)
		if metadata != nil {
			atom.Metadata = metadata
		}
		atom.Modified = now
		s.modified = now
		return atom, nil
	}

	if s.atCapacity() {
		return nil, &CapacityExceeded{Capacity: s.capacity}
	}

	atom := &Atom{
		ID:        uuid.NewString(),
		Kind:      KindNode,
		Type:      typ,
		Name:      name,
		Truth:     tv,
		Attention: clamp01(attention),
		Metadata:  metadata,
		Created:   now,
		Modified:  now,
		Version:   VersionVector{},
	}
	s.atoms[atom.ID] = atom
	s.byNodeName[key] = atom.ID
	s.modified = now
	return atom, nil
}

// resolveOutgoingEntry resolves a bare ConceptNode name into its id,
// creating the node if absent, per spec §4.1's addLink contract. A value
// that is already a known atom id is passed through unchanged. A value
// that parses as a well-formed UUID but is not owned by this store is an
// InvalidReference, not a bare name: only non-UUID strings are eligible
// for auto-creation.
func (s *AtomStore) resolveOutgoingEntry(entry string) (string, error) {
	if _, ok := s.atoms[entry]; ok {
		return entry, nil
	}
	if _, err := uuid.Parse(entry); err == nil {
		return "", &InvalidReference{Ref: entry}
	}
	key := nodeKey("ConceptNode", entry)
	if id, ok := s.byNodeName[key]; ok {
		return id, nil
	}
	if s.atCapacity() {
		return "", &CapacityExceeded{Capacity: s.capacity}
	}
	now := s.clock.Now()
	atom := &Atom{
		ID:        uuid.NewString(),
		Kind:      KindNode,
		Type:      "ConceptNode",
		Name:      entry,
		Truth:     DefaultTruthValue(),
		Attention: 0,
		Created:   now,
		Modified:  now,
		Version:   VersionVector{},
	}
	s.atoms[atom.ID] = atom
	s.byNodeName[key] = atom.ID
	return atom.ID, nil
}

// AddLink resolves bare names in outgoing into ConceptNode ids (creating
// them if absent), then upserts a Link of the given type. Links are
// indexed by (type, hash-of-outgoing). Duplicate links with identical
// outgoing return the existing atom. Spec §4.1.
func (s *AtomStore) AddLink(typ string, outgoing []string, tv TruthValue, attention float64, metadata map[string]any) (*Atom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(outgoing) == 0 {
		return nil, fmt.Errorf("atomspace: link %s must have at least one outgoing atom", typ)
	}

	resolved := make([]string, len(outgoing))
	for i, entry := range outgoing {
		id, err := s.resolveOutgoingEntry(entry)
		if err != nil {
			return nil, err
		}
		resolved[i] = id
	}
	for _, id := range resolved {
		if _, ok := s.atoms[id]; !ok {
			return nil, &InvalidReference{Ref: id}
		}
	}

	now := s.clock.Now()
	key := linkKey(typ, resolved)
	if id, ok := s.byLinkKey[key]; ok {
		return s.atoms[id], nil
	}

	if s.atCapacity() {
		return nil, &CapacityExceeded{Capacity: s.capacity}
	}

	atom := &Atom{
		ID:        uuid.NewString(),
		Kind:      KindLink,
		Type:      typ,
		Outgoing:  resolved,
		Truth:     tv,
		Attention: clamp01(attention),
		Metadata:  metadata,
		Created:   now,
		Modified:  now,
		Version:   VersionVector{},
	}
	s.atoms[atom.ID] = atom
	s.byLinkKey[key] = atom.ID
	s.modified = now
	return atom, nil
}

// lookupNodeKey returns the atom currently indexed under (type, name), if any.
func (s *AtomStore) lookupNodeKey(typ, name string) (*Atom, bool) {
	id, ok := s.byNodeName[nodeKey(typ, name)]
	if !ok {
		return nil, false
	}
	return s.atoms[id], true
}

// lookupLinkKey returns the atom currently indexed under (type, outgoing), if any.
func (s *AtomStore) lookupLinkKey(typ string, outgoing []string) (*Atom, bool) {
	id, ok := s.byLinkKey[linkKey(typ, outgoing)]
	if !ok {
		return nil, false
	}
	return s.atoms[id], true
}

// insertRemoteNode adds a Node atom with an id assigned by its origin
// replica (preserved so later Link outgoing references resolve), used only
// when applying a remote addNode op for a (type, name) key this store has
// never seen. Callers hold s.mu.
func (s *AtomStore) insertRemoteNode(id, typ, name string, tv TruthValue, attention float64, metadata map[string]any, version VersionVector) *Atom {
	now := s.clock.Now()
	atom := &Atom{
		ID:        id,
		Kind:      KindNode,
		Type:      typ,
		Name:      name,
		Truth:     tv,
		Attention: clamp01(attention),
		Metadata:  metadata,
		Created:   now,
		Modified:  now,
		Version:   version.Clone(),
	}
	s.atoms[id] = atom
	s.byNodeName[nodeKey(typ, name)] = id
	s.modified = now
	return atom
}

// insertRemoteLink adds a Link atom with an id assigned by its origin
// replica. Callers hold s.mu and must have already verified every entry
// in outgoing resolves locally.
func (s *AtomStore) insertRemoteLink(id, typ string, outgoing []string, tv TruthValue, attention float64, metadata map[string]any, version VersionVector) *Atom {
	now := s.clock.Now()
	atom := &Atom{
		ID:        id,
		Kind:      KindLink,
		Type:      typ,
		Outgoing:  outgoing,
		Truth:     tv,
		Attention: clamp01(attention),
		Metadata:  metadata,
		Created:   now,
		Modified:  now,
		Version:   version.Clone(),
	}
	s.atoms[id] = atom
	s.byLinkKey[linkKey(typ, outgoing)] = id
	s.modified = now
	return atom
}

// applyRemoteUpdate overwrites an existing atom's truth/attention and
// merges its version vector. Callers hold s.mu.
func (s *AtomStore) applyRemoteUpdate(a *Atom, tv TruthValue, attention float64, version VersionVector) {
	a.Truth = tv
	a.Attention = clamp01(attention)
	a.Version = a.Version.Merge(version)
	a.Modified = s.clock.Now()
	s.modified = a.Modified
}

// bumpVersion increments nodeID's slot in atom id's version vector and
// returns the resulting vector, for the Replicator to stamp into a
// pending-op record immediately after a local mutation.
func (s *AtomStore) bumpVersion(id, nodeID string) VersionVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.atoms[id]
	if !ok {
		return nil
	}
	if a.Version == nil {
		a.Version = VersionVector{}
	}
	a.Version[nodeID]++
	return a.Version.Clone()
}

// versionOf returns the current version vector for id, or nil if unknown.
func (s *AtomStore) versionOf(id string) VersionVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.atoms[id]
	if !ok {
		return nil
	}
	return a.Version.Clone()
}

// withLock runs fn while holding the store's write lock, for replicator
// operations (remote-op application, lookups) that must observe a
// consistent snapshot across several index lookups.
func (s *AtomStore) withLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// GetNode looks up a Node by (type, name).
func (s *AtomStore) GetNode(typ, name string) (*Atom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNodeName[nodeKey(typ, name)]
	if !ok {
		return nil, false
	}
	return s.atoms[id], true
}

// GetAtom looks up any atom by id.
func (s *AtomStore) GetAtom(id string) (*Atom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.atoms[id]
	return a, ok
}

// Has reports whether id is owned by this store.
func (s *AtomStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.atoms[id]
	return ok
}

// GetTopAttention returns the k atoms of highest current attention.
func (s *AtomStore) GetTopAttention(k int) []*Atom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Atom, 0, len(s.atoms))
	for _, a := range s.atoms {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Attention != all[j].Attention {
			return all[i].Attention > all[j].Attention
		}
		return all[i].ID < all[j].ID
	})
	if k > len(all) {
		k = len(all)
	}
	return append([]*Atom(nil), all[:k]...)
}

// SpreadAttention raises the attention of every Link whose outgoing
// contains source, then recurses with halved factor into every other
// atom in that Link's outgoing, up to depth levels. Spec §4.1.
func (s *AtomStore) SpreadAttention(source string, factor float64, depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spreadAttentionLocked(source, factor, depth)
}

func (s *AtomStore) spreadAttentionLocked(source string, factor float64, depth int) {
	if depth <= 0 {
		return
	}
	src, ok := s.atoms[source]
	if !ok {
		return
	}
	now := s.clock.Now()
	for _, link := range s.atoms {
		if link.Kind != KindLink {
			continue
		}
		contains := false
		for _, id := range link.Outgoing {
			if id == source {
				contains = true
				break
			}
		}
		if !contains {
			continue
		}
		link.Attention = clamp01(link.Attention + factor*src.Attention)
		link.Modified = now

		for _, id := range link.Outgoing {
			if id == source {
				continue
			}
			s.spreadAttentionLocked(id, factor/2, depth-1)
		}
	}
}

// DecayAttention multiplies every atom's attention by the configured
// decay factor (default 0.995). Uses gonum/floats to scale the attention
// vector in one pass, matching the vectorized style of the teacher's
// inference-side numeric code.
func (s *AtomStore) DecayAttention() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.atoms))
	vals := make([]float64, 0, len(s.atoms))
	for id, a := range s.atoms {
		ids = append(ids, id)
		vals = append(vals, a.Attention)
	}
	floats.Scale(s.attentionDecay, vals)

	now := s.clock.Now()
	for i, id := range ids {
		a := s.atoms[id]
		a.Attention = clamp01(vals[i])
		a.Modified = now
	}
	s.modified = now
}

// Stats reports store-wide counters.
func (s *AtomStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Created: s.created, Modified: s.modified}
	for _, a := range s.atoms {
		st.AtomCount++
		if a.IsNode() {
			st.NodeCount++
		} else {
			st.LinkCount++
		}
	}
	return st
}

// entelechyFailureTV, transcendTV and recorderAttention reproduce the literal
// truth/attention values given in the teacher's convenience recorders,
// since they influence downstream attention-based queries (spec §4.1).
var (
	entelechyFailureTV = TruthValue{Strength: 0.99, Confidence: 0.95}
	transcendTV        = TruthValue{Strength: 0.99, Confidence: 0.95}
)

const recorderAttention = 0.95

// RecordEntelechyFailure records a named failure as a ConceptNode linked
// to an "EntelechyFailure" concept via an EvaluationLink, using fixed constants.
func (s *AtomStore) RecordEntelechyFailure(desc string, severity float64) (*Atom, error) {
	node, err := s.AddNode("ConceptNode", desc, entelechyFailureTV, recorderAttention, map[string]any{
		"severity": severity,
	})
	if err != nil {
		return nil, err
	}
	link, err := s.AddLink("EvaluationLink", []string{"EntelechyFailure", node.ID}, entelechyFailureTV, recorderAttention, nil)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RecordTranscend records a named transcendence event as a ConceptNode
// linked via an InheritanceLink to a "Transcendence" concept.
func (s *AtomStore) RecordTranscend(desc string) (*Atom, error) {
	node, err := s.AddNode("ConceptNode", desc, transcendTV, recorderAttention, nil)
	if err != nil {
		return nil, err
	}
	link, err := s.AddLink("InheritanceLink", []string{node.ID, "Transcendence"}, transcendTV, recorderAttention, nil)
	if err != nil {
		return nil, err
	}
	return link, nil
}
