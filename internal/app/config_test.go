package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validYAML = `
telegram:
  token: "test-token"
  operators: [100, 200]
  run_mode: longpoll
database:
  host: localhost
  port: "5432"
  user: u
  password: p
  name: regbot
  sslmode: disable
bot:
  guide_path: guide.pdf
  users_page_size: 5
  districts:
    - Chilonzor
    - Yunusobod
`

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Core.Telegram.Token)
	assert.Equal(t, []int64{100, 200}, cfg.Core.Telegram.Operators)
	assert.Equal(t, "longpoll", cfg.Core.Telegram.RunMode)
	assert.Equal(t, "regbot", cfg.Database.Name)
	assert.Equal(t, "guide.pdf", cfg.Bot.GuidePath)
	assert.Equal(t, 5, cfg.Bot.UsersPageSize)
	assert.Equal(t, []string{"Chilonzor", "Yunusobod"}, cfg.Bot.Districts)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, validYAML)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("BOT_GUIDE_PATH", "other.pdf")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Core.Telegram.Token)
	assert.Equal(t, "other.pdf", cfg.Bot.GuidePath)
}

func TestLoadConfigMissingToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  run_mode: longpoll
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigDistrictsDeduplicated(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "t"
bot:
  districts: [Chilonzor, chilonzor, Yunusobod]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chilonzor", "Yunusobod"}, cfg.Bot.Districts)
}

func TestLoadConfigEmptyDistrictRejected(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "t"
bot:
  districts: ["Chilonzor", ""]
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "districts")
}

func TestConfigCarrier(t *testing.T) {
	path := writeConfig(t, validYAML)
	carrier, err := LoadConfigCarrier(path)
	require.NoError(t, err)
	require.NotNil(t, carrier.CoreConfig())
	assert.Equal(t, "test-token", carrier.CoreConfig().Telegram.Token)
}
