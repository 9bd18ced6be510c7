package atomspace

import (
	"context"
	"sync"
)

// Ack is returned by a successful Transport.Send.
type Ack struct {
	PeerID    string
	Delivered bool
}

// Transport abstracts the network layer a Replicator pushes sync payloads
// over (spec §4.2, §6, §9 "simulated network transport"). The core
// specifies only the protocol; wire encoding is the Transport's concern.
type Transport interface {
	Send(ctx context.Context, nodeID string, payload SyncPayload) (Ack, error)
}

// InMemoryTransport wires peer Replicators together directly, for tests
// and single-process deployments. Registering a peer's ApplyRemoteOps
// callback is the only setup required.
type InMemoryTransport struct {
	mu    sync.RWMutex
	peers map[string]func(ctx context.Context, sourceNodeID string, ops []PendingOp) error
}

// NewInMemoryTransport constructs an empty InMemoryTransport.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{
		peers: make(map[string]func(ctx context.Context, sourceNodeID string, ops []PendingOp) error),
	}
}

// Register attaches a peer node's remote-op sink under nodeID.
func (t *InMemoryTransport) Register(nodeID string, apply func(ctx context.Context, sourceNodeID string, ops []PendingOp) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[nodeID] = apply
}

// Send delivers payload synchronously to the registered peer.
func (t *InMemoryTransport) Send(ctx context.Context, nodeID string, payload SyncPayload) (Ack, error) {
	t.mu.RLock()
	apply, ok := t.peers[nodeID]
	t.mu.RUnlock()
	if !ok {
		return Ack{PeerID: nodeID, Delivered: false}, nil
	}
	if err := apply(ctx, payload.SourceNodeID, payload.Ops); err != nil {
		return Ack{PeerID: nodeID, Delivered: false}, err
	}
	return Ack{PeerID: nodeID, Delivered: true}, nil
}
