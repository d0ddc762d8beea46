// Package main implements the Volt server: a single process hosting an
// in-memory sharded key-value cluster behind a thin HTTP/JSON edge.
//
// The server seeds the cluster with a configurable number of local
// nodes, then serves the boundary contract:
//
//	GET    /health       - 200 when the cluster has at least one node
//	GET    /kv/{key}     - fetch a string value
//	POST   /kv/{key}     - store a string value, optional TTL
//	DELETE /kv/{key}     - delete a key
//	GET    /json/{key}   - fetch an arbitrary JSON value
//	POST   /json/{key}   - store an arbitrary JSON value, optional TTL
//	GET    /metrics      - Prometheus exposition
//
// Configuration (environment):
//   - VOLT_HOST: listen host (default: "0.0.0.0")
//   - VOLT_PORT: listen port (default: 3000)
//   - VOLT_NODE_COUNT: nodes seeded as node1..nodeN (default: 3)
//   - VOLT_VIRTUAL_NODES: ring positions per node (default: 100)
//   - VOLT_REPLICATION_FACTOR: replicas per key (default: 2)
//   - VOLT_SWEEP_INTERVAL: expiration tick (default: 10ms)
//
// Example usage:
//
//	VOLT_PORT=3000 VOLT_NODE_COUNT=3 ./volt
//
//	curl -X POST localhost:3000/kv/greeting \
//	  -d '{"value":"hello","ttl_seconds":60}'
//	curl localhost:3000/kv/greeting
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/voltkv/volt/internal/cluster"
)

// config holds the launcher's environment-driven settings.
type config struct {
	Host              string        `default:"0.0.0.0"`
	Port              int           `default:"3000"`
	NodeCount         int           `split_words:"true" default:"3"`
	VirtualNodes      int           `split_words:"true" default:"100"`
	ReplicationFactor int           `split_words:"true" default:"2"`
	SweepInterval     time.Duration `split_words:"true" default:"10ms"`
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg config
	if err := envconfig.Process("volt", &cfg); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.NodeCount < 1 {
		logger.Fatal("VOLT_NODE_COUNT must be at least 1",
			zap.Int("node_count", cfg.NodeCount))
	}

	c := cluster.New(
		cluster.WithVirtualNodes(cfg.VirtualNodes),
		cluster.WithReplicationFactor(cfg.ReplicationFactor),
		cluster.WithSweepInterval(cfg.SweepInterval),
		cluster.WithLogger(logger),
	)
	defer c.Close()

	// Seed local nodes node1..nodeN. Node addition is a local operation;
	// cross-host membership is out of scope for this process.
	for i := 1; i <= cfg.NodeCount; i++ {
		if err := c.AddNode(fmt.Sprintf("node%d", i)); err != nil {
			logger.Fatal("seeding node failed", zap.Error(err))
		}
	}

	srv := newServer(c, logger)

	s := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second, // Prevent slowloris attacks
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		logger.Info("volt listening",
			zap.String("addr", s.Addr),
			zap.Int("nodes", cfg.NodeCount),
			zap.Int("replication_factor", cfg.ReplicationFactor))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// Initiate graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	logger.Info("volt stopped")
}
