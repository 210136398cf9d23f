package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeware/peerintake/pkg/nodeid"
)

func TestBindFlags_RegistersFlags(t *testing.T) {
	viper.Reset()
	cmd := &cobra.Command{}
	BindFlags(cmd)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("batch-size"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("clients-per-pool"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("batch-timeout"))

	require.NoError(t, cmd.PersistentFlags().Set("batch-size", "256"))
	assert.Equal(t, "256", viper.GetString("batch-size"))
}

func TestSettings_Load_Defaults(t *testing.T) {
	viper.Reset()
	os.Clearenv()
	cmd := &cobra.Command{}
	BindFlags(cmd)

	s := &Settings{}
	require.NoError(t, s.Load(cmd))

	assert.Equal(t, 128, s.BatchSize())
	assert.Equal(t, 64, s.ClientsPerPool())
	assert.Equal(t, 2*time.Second, s.BatchTimeout())
	assert.Equal(t, nodeid.ID(1000), s.FirstClientID())
}

func TestSettings_Load_FromEnvVar(t *testing.T) {
	viper.Reset()
	os.Clearenv()
	require.NoError(t, os.Setenv("PEERINTAKE_BATCH_SIZE", "777"))
	defer os.Unsetenv("PEERINTAKE_BATCH_SIZE")

	cmd := &cobra.Command{}
	BindFlags(cmd)

	s := &Settings{}
	require.NoError(t, s.Load(cmd))
	assert.Equal(t, 777, s.BatchSize())
}

func TestSettings_Load_RejectsNonPositiveValues(t *testing.T) {
	viper.Reset()
	os.Clearenv()
	cmd := &cobra.Command{}
	BindFlags(cmd)
	viper.Set("batch-size", 0)

	s := &Settings{}
	require.NoError(t, s.Load(cmd))
	assert.Equal(t, 128, s.BatchSize(), "an invalid batch-size must fall back to the default")
}

func TestGlobalSettings_IsASingleton(t *testing.T) {
	assert.Same(t, GlobalSettings(), GlobalSettings())
}

func TestClientPoolConfig_Projection(t *testing.T) {
	viper.Reset()
	os.Clearenv()
	cmd := &cobra.Command{}
	BindFlags(cmd)

	s := &Settings{}
	require.NoError(t, s.Load(cmd))

	cpc := s.ClientPoolConfig()
	assert.Equal(t, s.BatchSize(), cpc.BatchSize)
	assert.Equal(t, s.ClientsPerPool(), cpc.MaxClients)
	assert.Equal(t, s.BatchTimeout(), cpc.BatchTimeout)
}
