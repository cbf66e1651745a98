package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/genrequizbot/quiz"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	for _, key := range []string{"BOT_TOKEN", "DB_PATH", "CATALOG_SOURCE", "CATALOG_TIMEOUT_SECONDS",
		"EXPLANATION_DELAY_MS", "SHUFFLE_QUESTIONS", "DEBUG", "LOG_FILE", "DEEPSEEK_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "./data/genrequiz.db", cfg.DatabasePath)
	assert.Equal(t, "assets/quiz_data.json", cfg.CatalogSource)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, quiz.DefaultExplanationDelay, cfg.ExplanationDelay)
	assert.False(t, cfg.ShuffleQuestions)
	assert.False(t, cfg.Debug)
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("EXPLANATION_DELAY_MS", "250")
	t.Setenv("SHUFFLE_QUESTIONS", "true")
	t.Setenv("CATALOG_TIMEOUT_SECONDS", "oops")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.ExplanationDelay)
	assert.True(t, cfg.ShuffleQuestions)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsDotEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("BOT_TOKEN=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BOT_TOKEN") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.BotToken)
}
