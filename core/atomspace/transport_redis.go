package atomspace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport ships sync payloads to peers over a Redis list per peer
// node id, mirroring the teacher's reach-for-an-external-store-for-
// anything-durable habit (core/memory/supabase_*.go) with a broker
// already present in the pack's dependency graph. A companion consumer
// (RedisTransport.Drain, typically run by the receiving node) pops
// payloads and feeds them to a Replicator's ApplyRemoteOps.
type RedisTransport struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTransport wraps an existing redis client. keyPrefix namespaces
// the lists used per destination node id (default "cogkernel:sync:").
func NewRedisTransport(client *redis.Client, keyPrefix string) *RedisTransport {
	if keyPrefix == "" {
		keyPrefix = "cogkernel:sync:"
	}
	return &RedisTransport{client: client, keyPrefix: keyPrefix}
}

func (t *RedisTransport) key(nodeID string) string {
	return t.keyPrefix + nodeID
}

// Send serializes payload and pushes it onto the destination node's list.
func (t *RedisTransport) Send(ctx context.Context, nodeID string, payload SyncPayload) (Ack, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Ack{}, fmt.Errorf("atomspace: encoding sync payload: %w", err)
	}
	if err := t.client.RPush(ctx, t.key(nodeID), data).Err(); err != nil {
		return Ack{}, fmt.Errorf("atomspace: pushing sync payload: %w", err)
	}
	return Ack{PeerID: nodeID, Delivered: true}, nil
}

// Drain pops every pending payload addressed to localNodeID and replays
// it through apply (typically Replicator.ApplyRemoteOps). It returns the
// number of payloads processed.
func (t *RedisTransport) Drain(ctx context.Context, localNodeID string, apply func(sourceNodeID string, ops []PendingOp) error) (int, error) {
	key := t.key(localNodeID)
	n := 0
	for {
		data, err := t.client.LPop(ctx, key).Bytes()
		if err == redis.Nil {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("atomspace: draining sync payloads: %w", err)
		}
		var payload SyncPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return n, fmt.Errorf("atomspace: decoding sync payload: %w", err)
		}
		if err := apply(payload.SourceNodeID, payload.Ops); err != nil {
			return n, err
		}
		n++
	}
}
