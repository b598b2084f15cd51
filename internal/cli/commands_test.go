package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldscribe/internal/config"
	"github.com/roach88/worldscribe/internal/logger"
	"github.com/roach88/worldscribe/internal/migrate"
	"github.com/roach88/worldscribe/internal/store"
)

// runCLI executes the root command with a config rooted in worldsDir and
// returns stdout and the command error.
func runCLI(t *testing.T, worldsDir string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Config: &config.Config{
			Worlds: config.WorldsConfig{Dir: worldsDir},
			Log:    config.LogConfig{Mode: "development", Level: "error"},
			Store:  config.StoreConfig{Timeout: config.DefaultStoreTimeout},
		},
		Logger: logger.Nop(),
	}
	cmd := newRootCommand(opts)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func decodeData(t *testing.T, out string, v interface{}) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestCreateCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "create", "Shire")
	require.NoError(t, err)
	assert.Contains(t, out, `Created World "Shire"`)
	assert.DirExists(t, filepath.Join(dir, "Shire", "uploads"))

	out, err = runCLI(t, dir, "create", "Shire")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E409]")
}

func TestCreateCommand_InvalidName(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--format", "json", "create", "a:b")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
}

func TestCreateCommand_DirFlag(t *testing.T) {
	other := t.TempDir()

	_, err := runCLI(t, t.TempDir(), "create", "Shire", "--dir", other)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(other, "Shire"))
}

func TestVersionCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "create", "Shire")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "--format", "json", "version", "Shire")
	require.NoError(t, err)

	var v VersionResult
	decodeData(t, out, &v)
	assert.Equal(t, migrate.Default.Latest(), v.Version)
	assert.True(t, v.Current)
}

func TestVersionCommand_MissingWorld(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "version", "Nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E404]")
	assert.NoFileExists(t, filepath.Join(dir, "Nowhere", "database.sqlite"))
}

func TestMigrateCommand_UpgradesOldStore(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "create", "Shire")
	require.NoError(t, err)

	// Pretend the World predates every migration.
	path := filepath.Join(dir, "Shire", "database.sqlite")
	db, err := store.OpenDB(path, store.DefaultBusyTimeout)
	require.NoError(t, err)
	_, err = db.Exec("ALTER TABLE categories DROP COLUMN icon")
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCLI(t, dir, "--format", "json", "migrate", "Shire")
	require.NoError(t, err)

	var res migrate.Result
	decodeData(t, out, &res)
	assert.Equal(t, 0, res.From)
	assert.Equal(t, 1, res.To)
	assert.Equal(t, migrate.StateCommitted, res.State)

	out, err = runCLI(t, dir, "migrate", "Shire")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to do")
}

func TestImportAndBrowseCommands(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "create", "Shire")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "--format", "json", "import", "Shire", filepath.Join("testdata", "shire.yaml"))
	require.NoError(t, err)

	var applied struct {
		Articles map[string]int64 `json:"articles"`
	}
	decodeData(t, out, &applied)
	require.Contains(t, applied.Articles, "Frodo")

	out, err = runCLI(t, dir, "--format", "json", "stats", "Shire")
	require.NoError(t, err)
	var counts store.RowCounts
	decodeData(t, out, &counts)
	assert.Equal(t, 3, counts.Articles)
	assert.Equal(t, 4, counts.Connections)
	assert.Equal(t, 2, counts.ConnectionDescriptions)

	out, err = runCLI(t, dir, "categories", "Shire")
	require.NoError(t, err)
	assert.Contains(t, out, "Person\t[Age, Gender, Nicknames / Aliases, Short Bio]")

	out, err = runCLI(t, dir, "articles", "Shire")
	require.NoError(t, err)
	assert.Contains(t, out, "Bag End")
	assert.Contains(t, out, "Frodo")

	frodo := applied.Articles["Frodo"]
	out, err = runCLI(t, dir, "connections", "Shire", jsonNumber(frodo))
	require.NoError(t, err)
	assert.Contains(t, out, "Sam\tgardener\tTravelled to Mordor together.")
	assert.Contains(t, out, "Bag End\thome")
}

func TestConnectionsCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "create", "Shire")
	require.NoError(t, err)

	_, err = runCLI(t, dir, "connections", "Shire", "abc")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := runCLI(t, dir, "connections", "Shire", "999")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E404]")
}

func TestStatsCommand_MissingWorld(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "stats", "Nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E404]")
}

func TestImportCommand_BadFixture(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "create", "Shire")
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("connections:\n  - {main: a, other: b}\n"), 0o644))

	out, err := runCLI(t, dir, "import", "Shire", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unknown article")
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
