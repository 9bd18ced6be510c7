package kernel

import (
	"log/slog"
	"time"

	"github.com/echokernel/cogkernel/core/atomspace"
	"github.com/echokernel/cogkernel/core/kclock"
	"github.com/echokernel/cogkernel/core/scheduler"
)

// PersonalityProvider is the trait-container collaborator carried in
// Config (spec §6). The interface is read-only (no write method). The
// kernel stores the provider but does not call it: scheduler scoring and
// spawn_agent do not read traits.
type PersonalityProvider interface {
	// Get returns the named trait's value and whether it is defined.
	Get(name string) (float64, bool)
	// Inherit constructs a derived provider for a spawned child process,
	// blending this provider's traits toward baseline at rate.
	Inherit(rate float64) PersonalityProvider
}

// NopPersonality is a PersonalityProvider with no traits, used as the
// Config default so the kernel never needs a nil check on this collaborator.
type NopPersonality struct{}

func (NopPersonality) Get(name string) (float64, bool)          { return 0, false }
func (NopPersonality) Inherit(rate float64) PersonalityProvider { return NopPersonality{} }

// Config is the record Kernel construction accepts, per spec §6.
type Config struct {
	NodeID string
	// Peers maps a cluster node id to a transport-level address. The
	// kernel does not dial these itself; a driver wires them into the
	// chosen Transport/GossipMembership before passing this config.
	Peers map[string]string

	SyncInterval    time.Duration
	SchedulerPolicy scheduler.Policy
	TimeQuantum     time.Duration
	AtomCapacity    int
	AttentionDecay  float64

	Transport   atomspace.Transport
	Clock       kclock.Clock
	Random      kclock.Random
	Logger      *slog.Logger
	Personality PersonalityProvider
}

// DefaultConfig returns the spec §6 defaults: syncInterval 5s, policy
// consciousness_aware, time quantum 100ms, atom capacity 10^6, attention
// decay 0.995, an in-memory transport, and the system clock/logger.
func DefaultConfig(nodeID string) Config {
	return Config{
		NodeID:          nodeID,
		Peers:           map[string]string{},
		SyncInterval:    5 * time.Second,
		SchedulerPolicy: scheduler.ConsciousnessAware,
		TimeQuantum:     100 * time.Millisecond,
		AtomCapacity:    1_000_000,
		AttentionDecay:  0.995,
		Transport:       atomspace.NewInMemoryTransport(),
		Clock:           kclock.System{},
		Random:          kclock.NewMathRandom(1),
		Logger:          slog.Default(),
		Personality:     NopPersonality{},
	}
}
