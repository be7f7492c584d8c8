package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallState_Render(t *testing.T) {
	state := NewInstallState()
	state.Settings.Provider = "anthropic"
	state.SetAPIKey("  sk-ant-123 ")
	state.Settings.TelegramToken = "42:abc"
	state.Settings.AllowedUserIDs = []int64{1, 2}
	finalize(state, "/srv/shop")

	out, err := state.Render()
	require.NoError(t, err)

	assert.Contains(t, out, "LLM_PROVIDER=anthropic\n")
	assert.Contains(t, out, "LLM_MODEL=claude-3-5-haiku-latest\n")
	assert.Contains(t, out, "ANTHROPIC_API_KEY=sk-ant-123\n")
	assert.Contains(t, out, "SEED_CATALOG_PATH=/srv/shop/catalog.yaml\n")
	assert.Contains(t, out, "ENABLE_TELEGRAM=true\n")
	assert.Contains(t, out, "TELEGRAM_ALLOWED_USER_IDS=1,2\n")
	assert.NotContains(t, out, "OPENAI_API_KEY")
}

func TestParseUserIDs(t *testing.T) {
	ids, err := parseUserIDs(" 12, 34 ,,")
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 34}, ids)

	ids, err = parseUserIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseUserIDs("12,abc")
	assert.Error(t, err)
}

func TestSaveEnvAndInitializeFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runtime")
	state := NewInstallState()
	state.Settings.Provider = "openai"
	state.SetAPIKey("sk-1")
	finalize(state, dir)

	require.NoError(t, SaveEnv(dir, state))
	data, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "OPENAI_API_KEY=sk-1")

	assert.Error(t, SaveEnv(dir, state), "existing .env must not be overwritten")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "SYSTEM.md"), []byte("custom"), 0644))
	require.NoError(t, InitializeFiles(dir))

	system, err := os.ReadFile(filepath.Join(dir, "SYSTEM.md"))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(system))

	catalog, err := os.ReadFile(filepath.Join(dir, catalogFile))
	require.NoError(t, err)
	assert.Contains(t, string(catalog), "products:")
}
