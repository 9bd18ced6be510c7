package atomspace

import (
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/memberlist"
)

const leaveTimeout = 5 * time.Second

// GossipMembership backs Replicator's cluster membership with a real
// gossip protocol instead of a bare peer map, for deployments that need
// failure detection across nodes. It is optional: the default
// InMemoryTransport-based setup never constructs one, since spec §9
// treats "simulated network transport" as something to abstract behind
// an interface, not something every test needs.
type GossipMembership struct {
	list *memberlist.Memberlist
	repl *Replicator
}

// MembershipConfig configures the gossip layer. BindAddr/BindPort follow
// memberlist's own defaults when zero.
type MembershipConfig struct {
	NodeName string
	BindAddr string
	BindPort int
}

// NewGossipMembership starts a memberlist agent and wires its
// join/leave notifications into repl's peer map.
func NewGossipMembership(cfg MembershipConfig, repl *Replicator) (*GossipMembership, error) {
	mlConfig := memberlist.DefaultLocalConfig()
	if cfg.NodeName != "" {
		mlConfig.Name = cfg.NodeName
	}
	if cfg.BindAddr != "" {
		mlConfig.BindAddr = cfg.BindAddr
	}
	if cfg.BindPort != 0 {
		mlConfig.BindPort = cfg.BindPort
	}

	gm := &GossipMembership{repl: repl}
	mlConfig.Events = gm

	list, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("atomspace: starting gossip membership: %w", err)
	}
	gm.list = list
	return gm, nil
}

// Join contacts one or more existing cluster members by host:port.
func (gm *GossipMembership) Join(existing []string) (int, error) {
	return gm.list.Join(existing)
}

// Leave gracefully leaves the cluster, broadcasting the departure and
// waiting at most leaveTimeout (5s) for it, then clears repl's peer map
// and shuts the memberlist agent down.
func (gm *GossipMembership) Leave() error {
	if err := gm.list.Leave(leaveTimeout); err != nil {
		return err
	}
	gm.repl.LeaveCluster()
	return gm.list.Shutdown()
}

// NotifyJoin implements memberlist.EventDelegate.
func (gm *GossipMembership) NotifyJoin(node *memberlist.Node) {
	gm.repl.AddPeer(PeerInfo{
		NodeID:  node.Name,
		Address: net.JoinHostPort(node.Addr.String(), fmt.Sprintf("%d", node.Port)),
	})
}

// NotifyLeave implements memberlist.EventDelegate.
func (gm *GossipMembership) NotifyLeave(node *memberlist.Node) {
	gm.removePeer(node.Name)
}

// NotifyUpdate implements memberlist.EventDelegate.
func (gm *GossipMembership) NotifyUpdate(node *memberlist.Node) {}

func (gm *GossipMembership) removePeer(nodeID string) {
	gm.repl.mu.Lock()
	defer gm.repl.mu.Unlock()
	delete(gm.repl.peers, nodeID)
}
