// Command peerintake-bench drives a synthetic load of replica and client
// peers through an intake.Facade and reports the throughput and pending
// queue depths it observes, to let an operator size batch-size,
// clients-per-pool, batch-timeout, and batch-sleep against a representative
// traffic shape before wiring the core into a real transport.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodeware/peerintake/pkg/clientpool"
	"github.com/nodeware/peerintake/pkg/config"
	"github.com/nodeware/peerintake/pkg/intake"
	"github.com/nodeware/peerintake/pkg/logging"
	"github.com/nodeware/peerintake/pkg/metrics"
	"github.com/nodeware/peerintake/pkg/nodeid"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		replicaCount int
		clientCount  int
		duration     time.Duration
		debug        bool
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "peerintake-bench",
		Short: "Drive synthetic replica/client traffic through the intake core",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logging.Init(level, os.Stderr)
			metrics.Initialize()

			settings := config.GlobalSettings()
			if err := settings.Load(cmd); err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			if metricsAddr != "" {
				go func() {
					srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
					logging.GetLogger().Info("serving metrics", "addr", metricsAddr)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logging.GetLogger().Error("metrics server exited", "error", err)
					}
				}()
			}

			return run(settings.ClientPoolConfig(), settings.FirstClientID(), replicaCount, clientCount, duration)
		},
	}

	config.BindFlags(cmd)
	cmd.Flags().IntVar(&replicaCount, "replicas", 4, "number of synthetic replica peers to simulate")
	cmd.Flags().IntVar(&clientCount, "clients", 200, "number of synthetic client peers to simulate")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run the simulation")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")

	return cmd
}

func run(cfg clientpool.Config, firstClientID nodeid.ID, replicaCount, clientCount int, duration time.Duration) error {
	log := logging.GetLogger()
	facade := intake.New[[]byte](1, nodeid.Replica, cfg)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < replicaCount; i++ {
		peer := nodeid.ID(2 + i)
		s := facade.EnsureSink(peer, nodeid.Replica)
		wg.Add(1)
		go simulatePeer(&wg, stop, func() error { return s.Push([]byte("replica-ping")) })
	}
	for i := 0; i < clientCount; i++ {
		peer := firstClientID + nodeid.ID(i)
		s := facade.EnsureSink(peer, nodeid.Client)
		wg.Add(1)
		go simulatePeer(&wg, stop, func() error { return s.Push([]byte("client-request")) })
	}

	var replicaMsgs, clientMsgs int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		timeout := 50 * time.Millisecond
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, ok := facade.ReceiveFromReplicas(&timeout); ok {
				replicaMsgs++
			}
			if msgs, err := facade.ReceiveFromClients(&timeout); err == nil {
				clientMsgs += int64(len(msgs))
			}
		}
	}()

	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(duration)
loop:
	for {
		select {
		case <-deadline:
			break loop
		case <-ticker.C:
			count, _ := facade.ConnectedClients()
			log.Info("progress",
				"elapsed", time.Since(start).Round(time.Second),
				"connected_clients", count,
				"connected_replicas", facade.ConnectedReplicas(),
				"pending_client_batches", facade.PendingClientBatches(),
				"pending_replica_messages", facade.PendingReplicaMessages(),
			)
		}
	}

	close(stop)
	wg.Wait()
	<-done

	log.Info("simulation complete",
		"duration", duration,
		"replica_messages_received", replicaMsgs,
		"client_messages_received", clientMsgs,
	)
	return nil
}

func simulatePeer(wg *sync.WaitGroup, stop <-chan struct{}, push func() error) {
	defer wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}
		_ = push()
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
}
