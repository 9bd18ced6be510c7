package atomspace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/dgo/v230"
	"github.com/dgraph-io/dgo/v230/protos/api"
)

// DgraphExporter dumps an AtomStore's contents to a Dgraph cluster and can
// restore a store from one, mirroring the teacher's
// core/memory/dgraph_hypergraph.go node/edge mutation shape. Spec §6 is
// explicit that no persistence format is defined by the core and that an
// implementation "may add dump/restore but must not alter the in-memory
// contract" — this type is purely additive and unreachable from any
// syscall.
type DgraphExporter struct {
	client *dgo.Dgraph
}

// NewDgraphExporter wraps an existing dgo client.
func NewDgraphExporter(client *dgo.Dgraph) *DgraphExporter {
	return &DgraphExporter{client: client}
}

type exportedAtom struct {
	UID        string   `json:"uid,omitempty"`
	DType      []string `json:"dgraph.type,omitempty"`
	AtomID     string   `json:"atom_id,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	Type       string   `json:"atom_type,omitempty"`
	Name       string   `json:"name,omitempty"`
	Outgoing   []string `json:"outgoing,omitempty"`
	Strength   float64  `json:"strength,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Attention  float64  `json:"attention,omitempty"`
	Metadata   string   `json:"metadata,omitempty"`
}

// Dump writes every atom in store as a new Dgraph node in one
// transaction, following the teacher's AddNode/SetJson pattern. Records
// carry no uid, so atoms are not matched against nodes from an earlier
// dump: dumping twice stores each atom twice.
func (d *DgraphExporter) Dump(ctx context.Context, store *AtomStore) error {
	store.mu.RLock()
	atoms := make([]*Atom, 0, len(store.atoms))
	for _, a := range store.atoms {
		atoms = append(atoms, a)
	}
	store.mu.RUnlock()

	txn := d.client.NewTxn()
	defer txn.Discard(ctx)

	for _, a := range atoms {
		metadataJSON, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("atomspace: marshaling metadata for %s: %w", a.ID, err)
		}

		rec := exportedAtom{
			DType:      []string{"CognitiveAtom"},
			AtomID:     a.ID,
			Kind:       a.Kind.String(),
			Type:       a.Type,
			Name:       a.Name,
			Outgoing:   a.Outgoing,
			Strength:   a.Truth.Strength,
			Confidence: a.Truth.Confidence,
			Attention:  a.Attention,
			Metadata:   string(metadataJSON),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("atomspace: marshaling atom %s: %w", a.ID, err)
		}

		if _, err := txn.Mutate(ctx, &api.Mutation{SetJson: data}); err != nil {
			return fmt.Errorf("atomspace: mutating atom %s: %w", a.ID, err)
		}
	}

	if err := txn.Commit(ctx); err != nil {
		return fmt.Errorf("atomspace: committing dump: %w", err)
	}
	return nil
}

// Restore queries every CognitiveAtom back out of Dgraph and reinserts it
// into a fresh store, preserving original atom ids so Link outgoing
// references remain valid.
func (d *DgraphExporter) Restore(ctx context.Context, store *AtomStore) error {
	const query = `{
		atoms(func: type(CognitiveAtom)) {
			atom_id
			kind
			atom_type
			name
			outgoing
			strength
			confidence
			attention
			metadata
		}
	}`

	resp, err := d.client.NewReadOnlyTxn().Query(ctx, query)
	if err != nil {
		return fmt.Errorf("atomspace: querying dump: %w", err)
	}

	var result struct {
		Atoms []exportedAtom `json:"atoms"`
	}
	if err := json.Unmarshal(resp.Json, &result); err != nil {
		return fmt.Errorf("atomspace: decoding dump: %w", err)
	}

	// Nodes first, so link outgoing references resolve.
	for _, rec := range result.Atoms {
		if rec.Kind != "Node" {
			continue
		}
		restoreAtom(store, rec)
	}
	for _, rec := range result.Atoms {
		if rec.Kind != "Link" {
			continue
		}
		restoreAtom(store, rec)
	}
	return nil
}

func restoreAtom(store *AtomStore, rec exportedAtom) {
	var metadata map[string]any
	if rec.Metadata != "" {
		_ = json.Unmarshal([]byte(rec.Metadata), &metadata)
	}
	tv := TruthValue{Strength: rec.Strength, Confidence: rec.Confidence}

	store.withLock(func() {
		now := store.clock.Now()
		atom := &Atom{
			ID:        rec.AtomID,
			Type:      rec.Type,
			Name:      rec.Name,
			Outgoing:  rec.Outgoing,
			Truth:     tv,
			Attention: clamp01(rec.Attention),
			Metadata:  metadata,
			Created:   now,
			Modified:  now,
			Version:   VersionVector{},
		}
		if rec.Kind == "Node" {
			atom.Kind = KindNode
			store.atoms[atom.ID] = atom
			store.byNodeName[nodeKey(atom.Type, atom.Name)] = atom.ID
		} else {
			atom.Kind = KindLink
			store.atoms[atom.ID] = atom
			store.byLinkKey[linkKey(atom.Type, atom.Outgoing)] = atom.ID
		}
	})
}
