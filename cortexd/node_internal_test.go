package cortexd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/cortex/daemon"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileKeepsChangedFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.yaml")
	data := `
node:
  id: edge-from-file
  tick_interval: 50ms
  engine: template
privacy:
  preset: weak
storage:
  type: sqlite
  postgres_host: db.local
mqtt:
  enabled: true
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := daemon.DefaultConfig()
	require.NoError(t, err)

	flags := pflag.NewFlagSet("start", pflag.ContinueOnError)
	flags.StringVarP(&cfg.PrivacyPreset, "privacy", "p", cfg.PrivacyPreset, "")
	flags.StringVarP(&cfg.Node.NodeID, "id", "i", cfg.Node.NodeID, "")
	require.NoError(t, flags.Parse([]string{"--privacy", "strong"}))

	require.NoError(t, loadFile(flags, &cfg, path))

	assert.Equal(t, "strong", cfg.PrivacyPreset)
	assert.Equal(t, "edge-from-file", cfg.Node.NodeID)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Node.CallTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "db.local", cfg.Storage.Postgres.Host)
	assert.Equal(t, "5432", cfg.Storage.Postgres.Port)
	assert.True(t, cfg.MQTTEnabled)
	assert.Equal(t, 5*time.Second, cfg.MQTT.Timeout)
	assert.Equal(t, uint64(10), cfg.Node.Scheduler.TrainingEvery)
	assert.NoError(t, cfg.Validate())
}
