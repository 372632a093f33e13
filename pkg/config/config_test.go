package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/microwavekid/mentionserve/pkg/mention"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 100, cfg.Engine.DebounceMs)
	require.Equal(t, 5000, cfg.Engine.ResolveTimeoutMs)
	require.Equal(t, 8, cfg.Engine.MaxCandidates)
	require.Equal(t, "@", cfg.Triggers.Stakeholder)
	require.Equal(t, "#", cfg.Triggers.Deal)
	require.Equal(t, "+", cfg.Triggers.Account)
	require.Equal(t, 100*time.Millisecond, cfg.Debounce())
	require.Equal(t, 5*time.Second, cfg.ResolveTimeout())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[engine]
debounce_ms = 50
max_candidates = 4

[triggers]
stakeholder = "!"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Engine.DebounceMs)
	require.Equal(t, 4, cfg.Engine.MaxCandidates)
	require.Equal(t, "!", cfg.Triggers.Stakeholder)
	// untouched keys keep their defaults
	require.Equal(t, 5000, cfg.Engine.ResolveTimeoutMs)
	require.Equal(t, "#", cfg.Triggers.Deal)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	// default_limit has the wrong type; engine and triggers still apply
	path := writeConfig(t, `
[engine]
debounce_ms = 75

[triggers]
deal = "$"

[cli]
default_limit = "not a number"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 75, cfg.Engine.DebounceMs)
	require.Equal(t, "$", cfg.Triggers.Deal)
	require.Equal(t, 8, cfg.CLI.DefaultLimit, "broken section falls back to defaults")
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.FileExists(t, path)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestTriggerSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Triggers.Deal = "$"
	ts := cfg.TriggerSet()

	cat, ok := ts.Category('$')
	require.True(t, ok)
	require.Equal(t, mention.CategoryDeal, cat)
	cat, ok = ts.Category('@')
	require.True(t, ok)
	require.Equal(t, mention.CategoryStakeholder, cat)
	require.False(t, ts.IsTrigger('#'))
}

func TestTriggerSetCollisionFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Triggers.Deal = "@" // collides with stakeholder
	ts := cfg.TriggerSet()

	for trig, want := range map[rune]mention.Category{
		'@': mention.CategoryStakeholder,
		'#': mention.CategoryDeal,
		'+': mention.CategoryAccount,
	} {
		cat, ok := ts.Category(trig)
		require.True(t, ok, "trigger %q", trig)
		require.Equal(t, want, cat, "trigger %q", trig)
	}
}

func TestTriggerSetMultiCharFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Triggers.Account = "++"
	ts := cfg.TriggerSet()

	cat, ok := ts.Category('+')
	require.True(t, ok)
	require.Equal(t, mention.CategoryAccount, cat)
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()

	limit, debounce := 4, 250
	require.NoError(t, cfg.Update(path, &limit, &debounce, nil))
	require.Equal(t, 4, cfg.Engine.MaxCandidates)
	require.Equal(t, 250, cfg.Engine.DebounceMs)
	require.Equal(t, 60, cfg.Engine.MaxQuery, "nil leaves the field alone")

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}
