package cluster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltkv/volt/internal/store"
)

// newTestCluster builds a cluster with a fast sweep tick so expiration
// scenarios finish quickly.
func newTestCluster(t *testing.T, opts ...Option) *Cluster {
	t.Helper()
	opts = append([]Option{WithSweepInterval(5 * time.Millisecond)}, opts...)
	c := New(opts...)
	t.Cleanup(c.Close)
	return c
}

// replicaNodes resolves the white-box node handles for a key's replica
// list, for asserting on per-shard state directly.
func replicaNodes(c *Cluster, key string, count int) []*store.Node {
	descriptors := c.ring.Lookup(key, count)
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]*store.Node, 0, len(descriptors))
	for _, d := range descriptors {
		nodes = append(nodes, c.nodes[d])
	}
	return nodes
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCluster(t, WithVirtualNodes(100), WithReplicationFactor(2))
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))

	require.NoError(t, c.Set(context.Background(), "foo", []byte("bar"), 0))

	value, ok := c.Get("foo")
	require.True(t, ok)
	assert.Equal(t, []byte("bar"), value)
}

func TestDeleteRemovesKey(t *testing.T) {
	c := newTestCluster(t, WithVirtualNodes(100), WithReplicationFactor(2))
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))

	require.NoError(t, c.Set(context.Background(), "foo", []byte("bar"), 0))

	deleted, err := c.Delete(context.Background(), "foo")
	require.NoError(t, err)
	assert.True(t, deleted, "delete of a stored key reports present")

	_, ok := c.Get("foo")
	assert.False(t, ok)

	deleted, err = c.Delete(context.Background(), "foo")
	require.NoError(t, err)
	assert.False(t, deleted, "second delete reports absent")
}

func TestTTLExpiration(t *testing.T) {
	c := newTestCluster(t)
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 30*time.Millisecond))

	_, ok := c.Get("k")
	require.True(t, ok, "entry must be readable before its deadline")

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond, "entry must expire after its TTL")

	// The driver must also physically reclaim the entry.
	assert.Eventually(t, func() bool {
		for _, n := range replicaNodes(c, "k", 2) {
			if n.Len() != 0 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond, "sweep must reclaim the expired entry")
}

// TestOverwriteDefeatsStaleTTL is the cluster-level variant of the
// staleness rule: with the driver running, an entry overwritten without
// a TTL must survive its predecessor's deadline indefinitely.
func TestOverwriteDefeatsStaleTTL(t *testing.T) {
	c := newTestCluster(t)
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 40*time.Millisecond))
	require.NoError(t, c.Set(ctx, "k", []byte("v2"), 0))

	time.Sleep(120 * time.Millisecond)

	value, ok := c.Get("k")
	require.True(t, ok, "no-TTL overwrite must not be evicted by the stale record")
	assert.Equal(t, []byte("v2"), value)
}

// TestReplicaConvergence verifies that once Set returns, every replica
// in the key's list holds the value.
func TestReplicaConvergence(t *testing.T) {
	c := newTestCluster(t, WithReplicationFactor(2))
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))
	require.NoError(t, c.AddNode("c"))

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		require.NoError(t, c.Set(context.Background(), key, []byte(key), 0))

		replicas := replicaNodes(c, key, 2)
		require.Len(t, replicas, 2)
		for _, n := range replicas {
			assert.True(t, n.Contains(key), "replica %s must hold %s", n.ID(), key)
		}
	}
}

// TestDegradedReplication verifies that a replication factor larger
// than the node count writes to every available node instead of
// failing.
func TestDegradedReplication(t *testing.T) {
	c := newTestCluster(t, WithReplicationFactor(3))
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))

	for _, n := range replicaNodes(c, "k", 2) {
		assert.True(t, n.Contains("k"), "node %s must hold the degraded write", n.ID())
	}

	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestEmptyCluster(t *testing.T) {
	c := newTestCluster(t)

	_, ok := c.Get("k")
	assert.False(t, ok, "reads on an empty cluster miss")

	assert.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0),
		"writes on an empty cluster are a no-op")

	deleted, err := c.Delete(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestAddNodeValidation(t *testing.T) {
	c := newTestCluster(t)

	assert.Error(t, c.AddNode(""), "empty descriptor is rejected")

	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("a"), "duplicate add is a no-op")
	assert.Equal(t, 1, c.NumNodes())
}

func TestRemoveNode(t *testing.T) {
	c := newTestCluster(t, WithReplicationFactor(1))
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))

	ctx := context.Background()
	keys := make([]string, 200)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
		require.NoError(t, c.Set(ctx, keys[i], []byte("v"), 0))
	}

	assert.True(t, c.RemoveNode("b"))
	assert.False(t, c.RemoveNode("b"), "second remove reports absent")
	assert.Equal(t, 1, c.NumNodes())

	// Keys that were primary on the surviving node are still readable;
	// keys owned by the removed node are gone with it.
	for _, key := range keys {
		if value, ok := c.Get(key); ok {
			assert.Equal(t, []byte("v"), value)
		}
	}
}

func TestContains(t *testing.T) {
	c := newTestCluster(t)
	require.NoError(t, c.AddNode("a"))

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))

	assert.True(t, c.Contains("k"))
	assert.False(t, c.Contains("missing"))
}

func TestCancelledContext(t *testing.T) {
	c := newTestCluster(t)
	require.NoError(t, c.AddNode("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.Set(ctx, "k", []byte("v"), 0),
		"a cancelled fan-out surfaces the context error")
}

func TestCloseRejectsWrites(t *testing.T) {
	c := New(WithSweepInterval(5 * time.Millisecond))
	require.NoError(t, c.AddNode("a"))

	c.Close()
	c.Close() // idempotent

	assert.ErrorIs(t, c.Set(context.Background(), "k", []byte("v"), 0), ErrClosed)
	_, err := c.Delete(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.AddNode("b"), ErrClosed)
}

func TestConcurrentSetsAndGets(t *testing.T) {
	c := newTestCluster(t)
	require.NoError(t, c.AddNode("a"))
	require.NoError(t, c.AddNode("b"))
	require.NoError(t, c.AddNode("c"))

	ctx := context.Background()
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 250; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if err := c.Set(ctx, key, []byte(key), 0); err != nil {
					t.Errorf("set %s: %v", key, err)
					return
				}
				if value, ok := c.Get(key); !ok || string(value) != key {
					t.Errorf("round-trip failed for %s", key)
					return
				}
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}
}
