package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/model"
	"folio/internal/store"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "folio", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"serve"}, {"admin"}, {"browse"}, {"reply"}, {"export"}, {"import"},
		{"user", "add"}, {"gmail-auth"}, {"channels"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

// run executes the CLI against an isolated config directory.
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"FOLIO_CONFIG_DIR", "FOLIO_DB_PATH", "FOLIO_STORE_URL", "FOLIO_STORE_ANON_KEY",
		"FOLIO_WEB3FORMS_ACCESS_KEY", "FOLIO_EMAILJS_SERVICE_ID", "FOLIO_DEMO_MODE", "FOLIO_GMAIL", "FOLIO_LOG_FILE_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return t.TempDir()
}

func TestChannelsListsConfiguredMethods(t *testing.T) {
	dir := isolate(t)
	t.Setenv("FOLIO_WEB3FORMS_ACCESS_KEY", "real-key")

	out, err := run(t, dir, "", "channels")
	require.NoError(t, err)
	assert.Regexp(t, `web3forms\s+configured`, out)
	assert.Regexp(t, `emailjs\s+not configured`, out)
	assert.Regexp(t, `gmail\s+not configured`, out)
	assert.Regexp(t, `client\s+configured`, out)
	assert.NotContains(t, out, "Only the mail client")
}

func TestChannelsDemoMode(t *testing.T) {
	dir := isolate(t)
	t.Setenv("FOLIO_DEMO_MODE", "true")

	out, err := run(t, dir, "", "channels")
	require.NoError(t, err)
	assert.Regexp(t, `demo\s+active`, out)
	assert.Regexp(t, `web3forms\s+bypassed`, out)
}

func TestUserAdd(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, dir, "s3cret-pass\n", "user", "add", "Admin@Example.COM")
	require.NoError(t, err)
	assert.Contains(t, out, "Created admin Admin@example.com")

	_, err = run(t, dir, "", "user", "add", "Admin@example.com", "--password", "another")
	assert.Error(t, err, "duplicate account")

	_, err = run(t, dir, "", "user", "add", "other@example.com", "--password", "123")
	assert.ErrorContains(t, err, "at least 6")
}

func TestExportImport(t *testing.T) {
	dir := isolate(t)
	ctx := context.Background()

	db, err := store.NewSQLiteStore(filepath.Join(dir, "folio.db"))
	require.NoError(t, err)
	first, err := db.InsertSubmission(ctx, model.NewSubmission{Name: "Ada", Email: "ada@example.com", Subject: "Hi", Message: "hello, world"})
	require.NoError(t, err)
	_, err = db.InsertSubmission(ctx, model.NewSubmission{Name: "Bob", Email: "bob@example.com", Message: "yo"})
	require.NoError(t, err)
	require.NoError(t, db.UpdateStatus(ctx, first.ID, model.StatusRead))
	require.NoError(t, db.Close())

	out, err := run(t, dir, "", "export", "--filter", "read")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,name,email"))
	assert.Contains(t, lines[1], `"hello, world"`)

	all, err := run(t, dir, "", "export")
	require.NoError(t, err)

	other := t.TempDir()
	out, err = run(t, other, all, "import", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 submissions")

	db, err = store.NewSQLiteStore(filepath.Join(other, "folio.db"))
	require.NoError(t, err)
	defer db.Close()
	got, err := db.GetSubmission(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, got.Status)
	assert.NotNil(t, got.ReadAt)
}

func TestExportRejectsUnknownFilter(t *testing.T) {
	_, err := run(t, isolate(t), "", "export", "--filter", "archived")
	assert.ErrorContains(t, err, "unknown filter")
}

func TestReplyUsesChain(t *testing.T) {
	dir := isolate(t)
	t.Setenv("FOLIO_DEMO_MODE", "true")
	t.Setenv("FOLIO_DEMO_DELAY", "1ms")
	ctx := context.Background()

	db, err := store.NewSQLiteStore(filepath.Join(dir, "folio.db"))
	require.NoError(t, err)
	sub, err := db.InsertSubmission(ctx, model.NewSubmission{Name: "Ada", Email: "ada@example.com", Subject: "Hi", Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, dir, "", "reply", sub.ID, "-m", "Thanks!")
	require.NoError(t, err)
	assert.Contains(t, out, "(demo)")

	db, err = store.NewSQLiteStore(filepath.Join(dir, "folio.db"))
	require.NoError(t, err)
	defer db.Close()
	got, err := db.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, got.Status)

	_, err = run(t, dir, "", "reply", "missing", "-m", "x")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
