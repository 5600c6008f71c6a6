package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  base_url: "https://api.example.com"
storage:
  driver: sqlite
  path: "test.db"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "test.db", cfg.Storage.Path)

	// Defaults applied.
	assert.Equal(t, 10, cfg.Server.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.Equal(t, 9, cfg.Reminders.Hour)
	assert.Equal(t, 100, cfg.Reminders.SettlePollMs)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("DRIFT_API_URL", "https://env.example.com")

	yamlContent := `
server:
  base_url: "${DRIFT_API_URL}"
storage:
  driver: memory
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Server.BaseURL)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid sqlite config",
			cfg: Config{
				Server:  ServerConfig{BaseURL: "https://api.example.com"},
				Storage: StorageConfig{Driver: "sqlite", Path: "x.db"},
			},
		},
		{
			name: "missing base url",
			cfg: Config{
				Storage: StorageConfig{Driver: "memory"},
			},
			wantErr: true,
		},
		{
			name: "sqlite without path",
			cfg: Config{
				Server:  ServerConfig{BaseURL: "https://api.example.com"},
				Storage: StorageConfig{Driver: "sqlite"},
			},
			wantErr: true,
		},
		{
			name: "unknown driver",
			cfg: Config{
				Server:  ServerConfig{BaseURL: "https://api.example.com"},
				Storage: StorageConfig{Driver: "postgres"},
			},
			wantErr: true,
		},
		{
			name: "reminder hour out of range",
			cfg: Config{
				Server:    ServerConfig{BaseURL: "https://api.example.com"},
				Storage:   StorageConfig{Driver: "memory"},
				Reminders: RemindersConfig{Hour: 25},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
