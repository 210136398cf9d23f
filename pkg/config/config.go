// Package config loads the tunables of the client-pooling batch pipeline
// from cobra flags and viper-backed environment variables, mirroring the
// reference codebase's BindFlags/Settings pattern.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nodeware/peerintake/pkg/clientpool"
	"github.com/nodeware/peerintake/pkg/logging"
	"github.com/nodeware/peerintake/pkg/nodeid"
)

const envPrefix = "PEERINTAKE"

// BindFlags registers every pooling tunable on cmd's flag sets and binds
// each one to a viper key plus its PEERINTAKE_* environment variable. It is
// safe to call once per command; calling it twice re-registers the same
// flags and panics, same as cobra/pflag's own duplicate-flag behavior.
func BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Int("batch-size", 128, "client messages collected before a batch is delivered")
	cmd.PersistentFlags().Int("clients-per-pool", 64, "maximum client peers multiplexed onto one ClientPool")
	cmd.PersistentFlags().Duration("batch-timeout", 2*time.Second, "maximum wait for a batch to reach batch-size before it is delivered short")
	cmd.PersistentFlags().Duration("batch-sleep", 10*time.Millisecond, "base interval between collect cycles, jittered +/-25%")
	cmd.PersistentFlags().Uint32("first-client-id", 1000, "lowest peer id classified as a client rather than a replica")
	cmd.PersistentFlags().Int("client-buffer-size", 16384, "capacity hint for a newly created client's Pooled sink buffer")
	cmd.PersistentFlags().Int("batch-output-size", 1024, "capacity of the channel batches are delivered on")

	for _, name := range []string{
		"batch-size", "clients-per-pool", "batch-timeout", "batch-sleep",
		"first-client-id", "client-buffer-size", "batch-output-size",
	} {
		if err := viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("config: bind flag %q: %v", name, err))
		}
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Settings is the loaded, validated view of the pooling tunables. The zero
// value holds no tunables until Load is called; GlobalSettings returns the
// process-wide instance.
type Settings struct {
	mu sync.RWMutex

	batchSize        int
	clientsPerPool   int
	batchTimeout     time.Duration
	batchSleep       time.Duration
	firstClientID    nodeid.ID
	clientBufferSize int
	batchOutputSize  int
}

var (
	globalOnce     sync.Once
	globalSettings *Settings
)

// GlobalSettings returns the process-wide Settings instance, constructing
// it on first use. Call Load on the returned value once flags have been
// parsed.
func GlobalSettings() *Settings {
	globalOnce.Do(func() {
		globalSettings = &Settings{}
	})
	return globalSettings
}

// Load populates s from viper's current state (flags, environment, and any
// defaults BindFlags registered). It never fails on its own; it exists as a
// method, rather than a free function reading viper directly, so tests can
// swap in a fresh Settings without touching the global one.
func (s *Settings) Load(cmd *cobra.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batchSize = viper.GetInt("batch-size")
	s.clientsPerPool = viper.GetInt("clients-per-pool")
	s.batchTimeout = viper.GetDuration("batch-timeout")
	s.batchSleep = viper.GetDuration("batch-sleep")
	s.firstClientID = nodeid.ID(viper.GetUint32("first-client-id"))
	s.clientBufferSize = viper.GetInt("client-buffer-size")
	s.batchOutputSize = viper.GetInt("batch-output-size")

	if s.batchSize <= 0 {
		logging.GetLogger().Warn("invalid batch-size, defaulting", "value", s.batchSize, "default", 128)
		s.batchSize = 128
	}
	if s.clientsPerPool <= 0 {
		logging.GetLogger().Warn("invalid clients-per-pool, defaulting", "value", s.clientsPerPool, "default", 64)
		s.clientsPerPool = 64
	}
	return nil
}

func (s *Settings) BatchSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchSize
}

func (s *Settings) ClientsPerPool() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientsPerPool
}

func (s *Settings) BatchTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchTimeout
}

func (s *Settings) BatchSleep() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchSleep
}

func (s *Settings) FirstClientID() nodeid.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstClientID
}

func (s *Settings) ClientBufferSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientBufferSize
}

func (s *Settings) BatchOutputSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchOutputSize
}

// ClientPoolConfig projects these settings onto a clientpool.Config, the
// plain struct library embedders can build directly without going through
// viper/cobra at all.
func (s *Settings) ClientPoolConfig() clientpool.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clientpool.Config{
		MaxClients:       s.clientsPerPool,
		BatchSize:        s.batchSize,
		BatchTimeout:     s.batchTimeout,
		BatchSleep:       s.batchSleep,
		ClientBufferSize: s.clientBufferSize,
		BatchOutputSize:  s.batchOutputSize,
	}
}
