//go:build integration

package atomspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Gossip membership binds a real UDP/TCP port via memberlist; exercised
// only under `-tags integration`, mirroring the teacher's network-bound
// integration suite (test/integration).
func TestGossipMembershipJoinAndLeave(t *testing.T) {
	store := NewAtomStore()
	repA := NewReplicator(store, "node-a", NewInMemoryTransport())

	gmA, err := NewGossipMembership(MembershipConfig{NodeName: "node-a", BindAddr: "127.0.0.1", BindPort: 17946}, repA)
	require.NoError(t, err)
	defer gmA.Leave()

	storeB := NewAtomStore()
	repB := NewReplicator(storeB, "node-b", NewInMemoryTransport())
	gmB, err := NewGossipMembership(MembershipConfig{NodeName: "node-b", BindAddr: "127.0.0.1", BindPort: 17947}, repB)
	require.NoError(t, err)
	defer gmB.Leave()

	n, err := gmB.Join([]string{"127.0.0.1:17946"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
