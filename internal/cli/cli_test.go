package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/syncp/internal/bulk"
	"github.com/lherron/syncp/internal/db"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/store"
	"github.com/lherron/syncp/internal/testutil"
	"github.com/lherron/syncp/internal/treecopy"
)

// isolateEnv keeps the developer's configuration out of command runs
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"SYNCP_ENDPOINT", "SYNCP_TOKEN", "SYNCP_TOKEN_FILE", "SYNCP_DB_PATH", "SYNCP_DB_PATH_FILE",
		"SYNCP_PRINCIPAL", "SYNCP_LOG_LEVEL", "SYNCP_OUTPUT", "SYNCP_MAX_FILE_HANDLES_PER_COPY",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
	t.Setenv("HOME", t.TempDir())
}

// resetFlags restores every flag to its default between runs of rootCmd
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type cliEnv struct {
	dbPath string
	store  *store.Store
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	isolateEnv(t)
	database, dbPath := testutil.TempDB(t)
	return &cliEnv{dbPath: dbPath, store: store.New(database).As("alice")}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--db", e.dbPath, "--as", "alice"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, bulk.ExitOK, ExitCode(nil))
	assert.Equal(t, bulk.ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, bulk.ExitInvalid, ExitCode(domain.NewValueError("bad")))
	assert.Equal(t, bulk.ExitPartial, ExitCode(&treecopy.PartialError{}))
	assert.Equal(t, bulk.ExitFailure, ExitCode(&domain.NotFoundError{Resource: "entity", ID: "syn9"}))
	assert.Equal(t, 7, ExitCode(exitError(7, errors.New("custom"))))
}

func TestCpCopiesFolder(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	folder := testutil.Folder(t, env.store, src, "data")
	file := testutil.File(t, env.store, folder, "a.txt", domain.Annotations{"k": {"v"}})
	dst := testutil.Project(t, env.store, "dst")

	stdout, _, err := env.run(t, "cp", folder, dst)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Copied "+folder+" to ")
	assert.Contains(t, stdout, "Copied "+file+" to ")

	ctx := context.Background()
	newFolder, err := env.store.FindEntityID(ctx, "data", dst)
	require.NoError(t, err)
	newFile, err := env.store.FindEntityID(ctx, "a.txt", newFolder)
	require.NoError(t, err)
	copied, err := env.store.GetEntity(ctx, newFile, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Annotations{"k": {"v"}}, copied.Base().Annotations)

	stdout, _, err = env.run(t, "log", "--type", "entity.copied", "-o", "json")
	require.NoError(t, err)
	var events []domain.Event
	require.NoError(t, json.Unmarshal([]byte(stdout), &events))
	assert.Len(t, events, 2)
	for _, e := range events {
		require.NotNil(t, e.Principal)
		assert.Equal(t, "alice", *e.Principal)
	}
}

func TestCpMergesProject(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	file := testutil.File(t, env.store, src, "a.txt", nil)
	testutil.WikiPage(t, env.store, src, "", "home", "start at "+src)
	dst := testutil.Project(t, env.store, "dst")

	stdout, stderr, err := env.run(t, "cp", src, dst, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Merged "+src+" into "+dst)

	var pairs []treecopy.Pair
	require.NoError(t, json.Unmarshal([]byte(stdout), &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, file, pairs[0].Source)

	ctx := context.Background()
	headers, err := env.store.GetWikiHeaders(ctx, dst)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	page, err := env.store.GetWikiPage(ctx, dst, headers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "start at "+dst, page.Markdown)

	stdout, _, err = env.run(t, "log", "--type", "entity.merged", "-o", "json")
	require.NoError(t, err)
	var events []domain.Event
	require.NoError(t, json.Unmarshal([]byte(stdout), &events))
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ResourceID)
	assert.Equal(t, src, *events[0].ResourceID)
}

func TestCpStructuredOutput(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	file := testutil.File(t, env.store, src, "a.txt", nil)
	dst := testutil.Project(t, env.store, "dst")

	stdout, stderr, err := env.run(t, "cp", file, dst, "-o", "json", "--set-provenance", "none")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Copied "+file)

	var pairs []treecopy.Pair
	require.NoError(t, json.Unmarshal([]byte(stdout), &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, file, pairs[0].Source)

	act, err := env.store.GetProvenance(context.Background(), pairs[0].Destination, nil)
	assert.True(t, domain.IsNotFound(err), "expected no provenance, got %v (%v)", act, err)
}

func TestCpErrors(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	folder := testutil.Folder(t, env.store, src, "data")
	dst := testutil.Project(t, env.store, "dst")

	_, _, err := env.run(t, "cp", folder, dst, "--exclude-types", "folder")
	require.Error(t, err)
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))

	_, _, err = env.run(t, "cp", "not-an-id", dst)
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))

	_, _, err = env.run(t, "cp", folder, dst, "--version", "2")
	require.Error(t, err)
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err), "versions only apply to files")

	_, _, err = env.run(t, "cp", "syn999", dst)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, bulk.ExitFailure, ExitCode(err))
}

func TestCpMultipleSources(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	a := testutil.File(t, env.store, src, "a.txt", nil)
	b := testutil.File(t, env.store, src, "b.txt", nil)
	dst := testutil.Project(t, env.store, "dst")

	stdout, _, err := env.run(t, "cp", a, b, dst)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Copied "+a)
	assert.Contains(t, stdout, "Copied "+b)

	// a.txt now collides in dst.
	_, stderr, err := env.run(t, "cp", a, "syn999", dst, "--continue-on-error")
	require.Error(t, err)
	assert.Equal(t, bulk.ExitFailure, ExitCode(err))
	assert.Contains(t, stderr, "All 2 operations failed")
}

func TestCopyWikiShowRewrites(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	dst := testutil.Project(t, env.store, "dst")
	other := testutil.Folder(t, env.store, src, "other")
	root := testutil.WikiPage(t, env.store, src, "", "Home", "Welcome to "+src+"\nSee "+other+"\n")
	testutil.WikiPage(t, env.store, src, root, "Child", "Back to "+src+"/wiki/"+root+"\n")

	stdout, stderr, err := env.run(t, "copy-wiki", src, dst, "--map", other+"=syn4242", "--show-rewrites", "-o", "tsv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3, "header plus two pages: %q", stdout)
	assert.True(t, strings.HasSuffix(lines[1], "\tHome"))
	assert.True(t, strings.HasSuffix(lines[2], "\tChild"))

	assert.Contains(t, stderr, "-Welcome to "+src)
	assert.Contains(t, stderr, "+Welcome to "+dst)
	assert.Contains(t, stderr, "+See syn4242")
	assert.Contains(t, stderr, "+Back to "+dst+"/wiki/")

	_, _, err = env.run(t, "copy-wiki", src, dst, "--map", "broken")
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))
}

func TestCopyHandlesCommand(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	file := testutil.File(t, env.store, src, "a.txt", nil)
	h, err := env.store.GetFileHandle(context.Background(), file, nil)
	require.NoError(t, err)

	stdout, _, err := env.run(t, "copy-handles", h.ID, "--object-id", file, "--file-name", "b.txt", "-o", "json")
	require.NoError(t, err)

	var results []domain.FileHandleCopyResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	require.False(t, results[0].Failed())
	assert.Equal(t, "b.txt", results[0].NewFileHandle.FileName)

	_, _, err = env.run(t, "copy-handles", h.ID, "99999", "--object-id", file)
	require.Error(t, err)
	assert.Equal(t, bulk.ExitPartial, ExitCode(err))

	_, _, err = env.run(t, "copy-handles", h.ID)
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))
}

func TestChangeMetadataCommand(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	file := testutil.File(t, env.store, src, "a.txt", nil)

	stdout, _, err := env.run(t, "change-metadata", file, "--download-as", "a.csv", "--content-type", "text/csv", "--force-version", "-o", "tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, file+"\t2\t")
	assert.Contains(t, stdout, "\ta.csv\ttext/csv")

	stdout, _, err = env.run(t, "log", file, "--type", "file.metadata_changed", "-o", "json")
	require.NoError(t, err)
	var events []domain.Event
	require.NoError(t, json.Unmarshal([]byte(stdout), &events))
	assert.Len(t, events, 1)

	_, _, err = env.run(t, "change-metadata", file)
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))
	_, _, err = env.run(t, "change-metadata", src, "--download-as", "x")
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))
}

func TestTreeCommand(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	folder := testutil.Folder(t, env.store, src, "data")
	testutil.File(t, env.store, folder, "a.txt", nil)
	testutil.Link(t, env.store, src, "shortcut", folder)

	stdout, _, err := env.run(t, "tree", src)
	require.NoError(t, err)
	assert.Contains(t, stdout, "src [project "+src+"]")
	assert.Contains(t, stdout, "── data [folder "+folder+"]")
	assert.Contains(t, stdout, "│   └── a.txt [file ")

	stdout, _, err = env.run(t, "tree", src, "-L", "1", "-o", "ndjson")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 3, "root plus two children")
}

func TestImportCommand(t *testing.T) {
	env := setupCLI(t)
	manifestPath := testutil.WriteFile(t, t.TempDir(), "seed.yaml", `projects:
  - project: Seeded
    children:
      - folder: data
        children:
          - file: raw.csv
            content_type: text/csv
      - link: raw-link
        target: Seeded/data/raw.csv
    wiki:
      title: Home
      markdown: Data lives in ${Seeded/data}
`)

	stdout, _, err := env.run(t, "import", manifestPath, "-o", "json")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	ids := map[string]string{}
	for _, r := range rows {
		ids[r["path"]] = r["id"]
	}
	require.Contains(t, ids, "Seeded/data/raw.csv")
	require.Contains(t, ids, "Seeded/raw-link")

	ctx := context.Background()
	headers, err := env.store.GetWikiHeaders(ctx, ids["Seeded"])
	require.NoError(t, err)
	require.Len(t, headers, 1)
	page, err := env.store.GetWikiPage(ctx, ids["Seeded"], headers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Data lives in "+ids["Seeded/data"], page.Markdown)
}

func TestCacheCommands(t *testing.T) {
	env := setupCLI(t)
	path := testutil.WriteFile(t, t.TempDir(), "blob.bin", "bytes")

	_, _, err := env.run(t, "cache", "add", "17", path, "--md5", "abc")
	require.NoError(t, err)

	stdout, _, err := env.run(t, "cache", "ls", "-o", "tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "17\tabc\t")
	assert.Contains(t, stdout, path)

	_, _, err = env.run(t, "cache", "add", "18", filepath.Dir(path))
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err))
}

func TestWhoamiCommand(t *testing.T) {
	env := setupCLI(t)

	stdout, _, err := env.run(t, "whoami", "-o", "tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice\t"+env.dbPath)

	stdout, _, err = env.run(t, "whoami", "--as", "bob", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"principal": "bob"`)
}

func TestMigrateCommand(t *testing.T) {
	isolateEnv(t)
	env := &cliEnv{dbPath: filepath.Join(t.TempDir(), "fresh.db")}

	_, _, err := env.run(t, "log")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syncp migrate")

	stdout, _, err := env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Applied migration: 000001_baseline.sql")

	stdout, _, err = env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Database is up to date")

	stdout, _, err = env.run(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ 000002_journal.sql")

	database, err := db.Open(env.dbPath)
	require.NoError(t, err)
	defer database.Close()
	assert.NoError(t, database.RequiresMigrationError())
}

func TestVersionCommand(t *testing.T) {
	env := setupCLI(t)
	stdout, _, err := env.run(t, "version", "--json")
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, Version, out["version"])
}

func TestLogPagination(t *testing.T) {
	env := setupCLI(t)
	src := testutil.Project(t, env.store, "src")
	folder := testutil.Folder(t, env.store, src, "data")
	testutil.File(t, env.store, folder, "a.txt", nil)
	dst := testutil.Project(t, env.store, "dst")

	_, _, err := env.run(t, "cp", folder, dst)
	require.NoError(t, err)

	stdout, stderr, err := env.run(t, "log", "--type", "entity.copied", "--limit", "1", "-o", "json")
	require.NoError(t, err)
	var first []domain.Event
	require.NoError(t, json.Unmarshal([]byte(stdout), &first))
	require.Len(t, first, 1)
	require.Contains(t, stderr, "next cursor: ")
	next := strings.TrimSpace(strings.TrimPrefix(stderr[strings.Index(stderr, "next cursor: "):], "next cursor: "))

	stdout, _, err = env.run(t, "log", "--type", "entity.copied", "--limit", "1", "--cursor", next, "-o", "json")
	require.NoError(t, err)
	var second []domain.Event
	require.NoError(t, json.Unmarshal([]byte(stdout), &second))
	require.Len(t, second, 1)
	assert.Greater(t, second[0].ID, first[0].ID)

	_, _, err = env.run(t, "log", "--type", "wiki.copied", "--cursor", next)
	assert.Equal(t, bulk.ExitInvalid, ExitCode(err), "cursor from another query")
}
