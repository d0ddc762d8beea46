package cluster

import (
	"time"

	"go.uber.org/zap"

	"github.com/voltkv/volt/internal/store"
)

// startDriver launches the expiration driver: a single goroutine
// multiplexed across every node, waking each sweepInterval to advance
// the per-node expiration queues. It runs from the first AddNode until
// Close.
//
// One loop for the whole cluster keeps the goroutine count independent
// of node count; a tick that sweeps every shard is cheap because each
// queue pop is O(log n) and due records are rare relative to ticks.
// Clients never depend on sweep latency for correctness — reads apply
// lazy expiration — so the driver only bounds memory reclamation, with
// observable sweep latency at most two ticks.
func (c *Cluster) startDriver() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		c.logger.Info("expiration driver started",
			zap.Duration("interval", c.sweepInterval))

		for {
			select {
			case <-ticker.C:
				c.sweepAll(time.Now().UnixNano())
			case <-c.stop:
				c.logger.Info("expiration driver stopped")
				return
			}
		}
	}()
}

// sweepAll advances every node's expiration queue up to now. The node
// set is snapshotted first so no cluster lock is held while sweeping.
func (c *Cluster) sweepAll(now int64) {
	c.mu.RLock()
	nodes := make([]*store.Node, 0, len(c.nodes))
	for _, node := range c.nodes {
		nodes = append(nodes, node)
	}
	c.mu.RUnlock()

	swept := 0
	for _, node := range nodes {
		swept += node.SweepExpired(now)
	}
	if swept > 0 {
		c.metrics.swept.Add(float64(swept))
		c.logger.Debug("sweep reclaimed entries", zap.Int("count", swept))
	}
}
