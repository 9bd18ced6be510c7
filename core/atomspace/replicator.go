package atomspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// OpKind is the closed alphabet of mutations the pending-op log carries,
// per spec §4.2.
type OpKind int

const (
	OpAddNode OpKind = iota
	OpAddLink
	OpAttentionSet
)

// PendingOp is one mutation record, tagged with the version vector
// observed at mutation time, the originating node id, and a timestamp.
// Link ops carry the full resolved outgoing id list (not just a hash) so
// that applying the op on another replica actually reconstructs the link,
// per the spec's open question on remote link payloads.
type PendingOp struct {
	Kind       OpKind
	AtomID     string
	Type       string
	Name       string // Node ops
	Outgoing   []string
	Truth      TruthValue
	Attention  float64
	Metadata   map[string]any
	Version    VersionVector
	SourceNode string
	Timestamp  time.Time
}

// SyncPayload is what sync() hands to a Transport for one peer.
type SyncPayload struct {
	SourceNodeID string
	Ops          []PendingOp
}

// PeerInfo is cluster membership metadata for a known peer.
type PeerInfo struct {
	NodeID       string
	Address      string
	LastSyncedAt time.Time
	IsLeader     bool
}

// ReplicatorStats exposes conflict/sync counters for observability.
type ReplicatorStats struct {
	SyncCount     int
	OpsSent       int
	OpsApplied    int
	Conflicts     int
	LastSyncAt    time.Time
}

// SyncResult reports the outcome of one sync() call.
type SyncResult struct {
	TooSoon bool
	Acks    map[string]Ack
}

// Replicator wraps an AtomStore with per-atom version vectors, a
// pending-op log, and merge/sync semantics (spec §4.2). Grounded on the
// teacher's distributed-memory intent in core/memory/supabase_*.go and
// core/memory/dgraph_hypergraph.go, which push the same AddNode/AddEdge
// shape at an external store; here the "external store" is a peer
// replica reached through Transport.
type Replicator struct {
	mu sync.Mutex

	store  *AtomStore
	nodeID string
	clock  Clock

	transport    Transport
	syncInterval time.Duration
	lastSync     time.Time

	pending []PendingOp
	peers   map[string]*PeerInfo

	stats ReplicatorStats
}

// ReplicatorOption configures a Replicator.
type ReplicatorOption func(*Replicator)

// WithSyncInterval overrides the spec default of 5 seconds.
func WithSyncInterval(d time.Duration) ReplicatorOption {
	return func(r *Replicator) { r.syncInterval = d }
}

// WithReplicatorClock injects a Clock for deterministic tests.
func WithReplicatorClock(c Clock) ReplicatorOption {
	return func(r *Replicator) { r.clock = c }
}

// NewReplicator constructs a Replicator over store, identified by nodeID.
func NewReplicator(store *AtomStore, nodeID string, transport Transport, opts ...ReplicatorOption) *Replicator {
	r := &Replicator{
		store:        store,
		nodeID:       nodeID,
		clock:        systemClock{},
		transport:    transport,
		syncInterval: 5 * time.Second,
		peers:        make(map[string]*PeerInfo),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the wrapped AtomStore for read-only introspection
// (spec §4.6 "/atomspace returns the AtomStore itself").
func (r *Replicator) Store() *AtomStore { return r.store }

// NodeID returns this replica's cluster member id.
func (r *Replicator) NodeID() string { return r.nodeID }

func (r *Replicator) recordOp(op PendingOp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, op)
}

// AddNode routes through the store, then bumps the local version vector
// and logs a pending op.
func (r *Replicator) AddNode(typ, name string, tv TruthValue, attention float64, metadata map[string]any) (*Atom, error) {
	atom, err := r.store.AddNode(typ, name, tv, attention, metadata)
	if err != nil {
		return nil, err
	}
	vv := r.store.bumpVersion(atom.ID, r.nodeID)
	r.recordOp(PendingOp{
		Kind: OpAddNode, AtomID: atom.ID, Type: typ, Name: name,
		Truth: tv, Attention: clamp01(attention), Metadata: metadata,
		Version: vv, SourceNode: r.nodeID, Timestamp: r.now(),
	})
	return atom, nil
}

// AddLink routes through the store, then bumps the local version vector
// and logs a pending op carrying the fully-resolved outgoing id list.
func (r *Replicator) AddLink(typ string, outgoing []string, tv TruthValue, attention float64, metadata map[string]any) (*Atom, error) {
	atom, err := r.store.AddLink(typ, outgoing, tv, attention, metadata)
	if err != nil {
		return nil, err
	}
	vv := r.store.bumpVersion(atom.ID, r.nodeID)
	r.recordOp(PendingOp{
		Kind: OpAddLink, AtomID: atom.ID, Type: typ, Outgoing: atom.Outgoing,
		Truth: tv, Attention: clamp01(atom.Attention), Metadata: metadata,
		Version: vv, SourceNode: r.nodeID, Timestamp: r.now(),
	})
	return atom, nil
}

// SetAttention overwrites an atom's attention, bumps its version vector,
// and logs an attention-set pending op.
func (r *Replicator) SetAttention(atomID string, attention float64) error {
	atom, ok := r.store.GetAtom(atomID)
	if !ok {
		return fmt.Errorf("atomspace: atom %q not found", atomID)
	}
	atom.Attention = clamp01(attention)
	vv := r.store.bumpVersion(atomID, r.nodeID)
	r.recordOp(PendingOp{
		Kind: OpAttentionSet, AtomID: atomID, Type: atom.Type,
		Truth: atom.Truth, Attention: atom.Attention,
		Version: vv, SourceNode: r.nodeID, Timestamp: r.now(),
	})
	return nil
}

func (r *Replicator) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}
	return time.Now()
}

// sync returns immediately with TooSoon=true if called within
// syncInterval of the last successful sync. Otherwise it snapshots the
// pending-op list, forwards it to every known peer via Transport, records
// peer last-sync timestamps, and clears the pending-op list. Spec §4.2.
func (r *Replicator) Sync(ctx context.Context) (SyncResult, error) {
	r.mu.Lock()
	if !r.lastSync.IsZero() && r.now().Sub(r.lastSync) < r.syncInterval {
		r.mu.Unlock()
		return SyncResult{TooSoon: true}, nil
	}
	ops := append([]PendingOp(nil), r.pending...)
	peerIDs := make([]string, 0, len(r.peers))
	for id := range r.peers {
		peerIDs = append(peerIDs, id)
	}
	r.mu.Unlock()

	payload := SyncPayload{SourceNodeID: r.nodeID, Ops: ops}

	acks := make(map[string]Ack, len(peerIDs))
	var acksMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, peerID := range peerIDs {
		peerID := peerID
		g.Go(func() error {
			ack, err := r.transport.Send(gctx, peerID, payload)
			if err != nil {
				return err
			}
			acksMu.Lock()
			acks[peerID] = ack
			acksMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SyncResult{}, err
	}

	r.mu.Lock()
	now := r.now()
	r.lastSync = now
	for _, peerID := range peerIDs {
		if p, ok := r.peers[peerID]; ok {
			p.LastSyncedAt = now
		}
	}
	r.pending = nil
	r.stats.SyncCount++
	r.stats.OpsSent += len(ops)
	r.stats.LastSyncAt = now
	r.mu.Unlock()

	return SyncResult{Acks: acks}, nil
}

// shouldApply implements the version-vector admission test: a remote op
// is applied iff its source node's slot in the remote version vector
// exceeds the local atom's value for that same slot.
func shouldApply(localVersion, remoteVersion VersionVector, sourceNodeID string) bool {
	return remoteVersion[sourceNodeID] > localVersion[sourceNodeID]
}

// ApplyResult reports what happened when replaying a batch of remote ops.
type ApplyResult struct {
	Applied  int
	Rejected int
	Skipped  int
}

// ApplyRemoteOps replays a batch of mutations originating at sourceNodeID.
// Nodes are matched by (type, name) and Links by (type, outgoing) to
// preserve the "no two atoms share an index key" invariant across
// replicas; an op whose target already exists locally is admitted only
// if it passes the version-vector test, otherwise it is counted as a
// conflict. Spec §4.2.
func (r *Replicator) ApplyRemoteOps(sourceNodeID string, ops []PendingOp) ApplyResult {
	var result ApplyResult
	r.store.withLock(func() {
		for _, op := range ops {
			switch op.Kind {
			case OpAddNode:
				result.accumulate(r.applyNodeOpLocked(sourceNodeID, op))
			case OpAddLink:
				result.accumulate(r.applyLinkOpLocked(sourceNodeID, op))
			case OpAttentionSet:
				result.accumulate(r.applyAttentionOpLocked(sourceNodeID, op))
			}
		}
	})

	r.mu.Lock()
	r.stats.OpsApplied += result.Applied
	r.stats.Conflicts += result.Rejected
	r.mu.Unlock()
	return result
}

func (res *ApplyResult) accumulate(kind string) {
	switch kind {
	case "applied":
		res.Applied++
	case "rejected":
		res.Rejected++
	case "skipped":
		res.Skipped++
	}
}

func (r *Replicator) applyNodeOpLocked(sourceNodeID string, op PendingOp) string {
	existing, ok := r.store.lookupNodeKey(op.Type, op.Name)
	if !ok {
		r.store.insertRemoteNode(op.AtomID, op.Type, op.Name, op.Truth, op.Attention, op.Metadata, op.Version)
		return "applied"
	}
	if !shouldApply(existing.Version, op.Version, sourceNodeID) {
		return "rejected"
	}
	r.store.applyRemoteUpdate(existing, op.Truth, op.Attention, op.Version)
	return "applied"
}

func (r *Replicator) applyLinkOpLocked(sourceNodeID string, op PendingOp) string {
	for _, ref := range op.Outgoing {
		if _, ok := r.store.atoms[ref]; !ok {
			return "skipped"
		}
	}
	existing, ok := r.store.lookupLinkKey(op.Type, op.Outgoing)
	if !ok {
		r.store.insertRemoteLink(op.AtomID, op.Type, op.Outgoing, op.Truth, op.Attention, op.Metadata, op.Version)
		return "applied"
	}
	if !shouldApply(existing.Version, op.Version, sourceNodeID) {
		return "rejected"
	}
	r.store.applyRemoteUpdate(existing, op.Truth, op.Attention, op.Version)
	return "applied"
}

func (r *Replicator) applyAttentionOpLocked(sourceNodeID string, op PendingOp) string {
	existing, ok := r.store.atoms[op.AtomID]
	if !ok {
		return "skipped"
	}
	if !shouldApply(existing.Version, op.Version, sourceNodeID) {
		return "rejected"
	}
	r.store.applyRemoteUpdate(existing, op.Truth, op.Attention, op.Version)
	return "applied"
}

// DistributedQuery returns the local result immediately; this
// implementation has no asynchronous remote-merge step since replication
// is passive (driven by Sync/ApplyRemoteOps), so it simply de-duplicates
// by atom id in case the same UUID were to appear twice. Spec §4.2.
func (r *Replicator) DistributedQuery(p Pattern) []Match {
	matches := r.store.Query(p)
	seen := make(map[string]bool, len(matches))
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if seen[m.Atom.ID] {
			continue
		}
		seen[m.Atom.ID] = true
		out = append(out, m)
	}
	return out
}

// JoinCluster registers a peer (and its leader status) in the local peer
// map. No atom rebalancing occurs; replication is passive, driven by
// subsequent syncs. Spec §4.2.
func (r *Replicator) JoinCluster(leaderID string, leaderInfo PeerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	leaderInfo.NodeID = leaderID
	leaderInfo.IsLeader = true
	r.peers[leaderID] = &leaderInfo
}

// AddPeer registers a non-leader peer in the local peer map.
func (r *Replicator) AddPeer(info PeerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[info.NodeID] = &info
}

// LeaveCluster clears the local peer map.
func (r *Replicator) LeaveCluster() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = make(map[string]*PeerInfo)
}

// Peers returns a snapshot of known peers.
func (r *Replicator) Peers() []PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	return out
}

// Stats reports replication counters.
func (r *Replicator) Stats() ReplicatorStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
