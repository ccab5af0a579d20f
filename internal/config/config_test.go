package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ws://localhost:8000", cfg.Server.WSBaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.ReconnectBaseDelay)
	assert.Equal(t, 8, cfg.Session.MaxReconnectAttempts)
	assert.Equal(t, 24000, cfg.Audio.SampleRate)
	assert.Equal(t, 100, cfg.Audio.MaxQueuedChunks)
}

func TestUsingDefaultServerURL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	assert.True(t, UsingDefaultServerURL(), "nothing set means the default is in effect")

	viper.Set("server.ws_base_url", "wss://interviews.example.com")
	assert.False(t, UsingDefaultServerURL())
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store, err := NewFileTokenStore(path)
	require.NoError(t, err)

	// Missing file means no auth, not an error.
	token, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Store("secret-token"))

	token, err = store.Token()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token, "stored token round-trips trimmed")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileTokenStoreTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  tok-123\n\n"), 0600))

	store, err := NewFileTokenStore(path)
	require.NoError(t, err)

	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}
