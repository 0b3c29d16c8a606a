package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/sqlite"
)

const testItemsJSON = `[
  {"id": "KT1A:1", "createdAt": "2024-01-01T00:00:00Z", "name": "first"},
  {"id": "KT1B:7", "createdAt": "2024-01-02T00:00:00Z", "name": "second"}
]`

func TestRootCmd_Flags(t *testing.T) {
	assert.Equal(t, "federa", rootCmd.Use)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}

func TestSourcesCmd_ListsSources(t *testing.T) {
	setupTestFederation(t)

	out, err := execute(t, "sources")
	require.NoError(t, err)

	assert.Contains(t, out, "teia")
	assert.Contains(t, out, "Namespaces: KT1A")
	assert.Contains(t, out, "objkt")
	assert.Contains(t, out, "Namespaces: *")
	assert.Contains(t, out, "Excludes: KT1X")
}

func TestSourcesCmd_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.json"), []byte(testItemsJSON), 0600))
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, file.Save(path, &file.Config{Sources: []file.SourceConfig{{
		Key:        "fixtures",
		Type:       file.TypeMemory,
		Namespaces: []string{"KT1A"},
		Memory:     &file.MemoryConfig{ItemsFile: "items.json"},
	}}}))
	defer closeApplication()

	out, err := execute(t, "sources", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fixtures")
	require.NotNil(t, application)

	out, err = execute(t, "query", "--config", path, "--id", "KT1A:1")
	require.NoError(t, err)
	assert.Contains(t, out, "first")
}

func TestSourcesCmd_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	defer closeApplication()

	out, err := execute(t, "sources", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No sources configured.")
}

func TestSourcesCmd_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[sources]]\nkey = \"x\"\ntype = \"ftp\"\n"), 0600))
	defer closeApplication()

	_, err := execute(t, "sources", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestInitCmd_WritesSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "federa", "config.toml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration")

	cfg, err := file.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "teztok", cfg.Sources[0].Key)
	assert.True(t, cfg.Sources[1].Wildcard)

	_, err = execute(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestImportCmd_WritesCatalog(t *testing.T) {
	dir := t.TempDir()
	items := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(items, []byte(testItemsJSON), 0600))
	db := filepath.Join(dir, "catalog.db")

	out, err := execute(t, "import", items, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 items")
	assert.Contains(t, out, "2 namespaces")

	store, err := sqlite.Open(db)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportCmd_RejectsBadItems(t *testing.T) {
	dir := t.TempDir()
	items := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(items, []byte(`[{"id":"no-namespace"}]`), 0600))

	_, err := execute(t, "import", items, "--db", filepath.Join(dir, "catalog.db"))
	assert.Error(t, err)
}

func TestImportCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestServeCmd_Flags(t *testing.T) {
	for _, name := range []string{"addr", "watch", "timeout"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), "flag %s should exist", name)
	}
}

func TestServeCmd_WatchNeedsConfig(t *testing.T) {
	setupTestFederation(t)

	_, err := execute(t, "serve", "--watch", "--addr", "127.0.0.1:0")
	assert.ErrorIs(t, err, errNoApplication)
}

func TestMCPServeCmd_HasPortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestBrowseCmd_Flags(t *testing.T) {
	assert.Equal(t, "browse", browseCmd.Use)
	assert.NotNil(t, browseCmd.Flags().Lookup("filter"))
}
