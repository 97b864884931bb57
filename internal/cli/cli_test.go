package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("CURRENCY", "KES")
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("1.2.3", "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSchedule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "lendingdesk 1.2.3 (abc123)\n", out)
}

func TestFinesImportCommand(t *testing.T) {
	setupEnv(t)
	path := writeSchedule(t, `
currency: KES
fines:
  overdue: {amount: "15", description: "Per day overdue"}
  lost_book: {amount: "750.50"}
`)

	out, err := execute(t, "fines", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 fine settings")

	app, err := openApp(context.Background())
	require.NoError(t, err)
	defer app.Close()

	amount, err := app.Fines.Amount(context.Background(), entities.FineTypeOverdue)
	require.NoError(t, err)
	assert.Equal(t, "15.00", amount.StringFixed(2))

	amount, err = app.Fines.Amount(context.Background(), entities.FineTypeLostBook)
	require.NoError(t, err)
	assert.Equal(t, "750.50", amount.StringFixed(2))
}

func TestFinesImportCommand_DryRun(t *testing.T) {
	path := writeSchedule(t, "fines:\n  damaged: {amount: \"200\"}\n")

	out, err := execute(t, "fines", "import", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "damaged")
	assert.Contains(t, out, "200.00")
	assert.Contains(t, out, "dry run")
}

func TestFinesImportCommand_Rejects(t *testing.T) {
	setupEnv(t)

	t.Run("currency mismatch", func(t *testing.T) {
		path := writeSchedule(t, "currency: USD\nfines:\n  overdue: {amount: \"1\"}\n")
		_, err := execute(t, "fines", "import", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "USD")
	})

	t.Run("unknown fine type", func(t *testing.T) {
		path := writeSchedule(t, "fines:\n  parking: {amount: \"1\"}\n")
		_, err := execute(t, "fines", "import", path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "fines", "import", filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute(t, "fines", "import")
		require.Error(t, err)
	})
}

func TestReconcileAndStatsCommands(t *testing.T) {
	setupEnv(t)

	app, err := openApp(context.Background())
	require.NoError(t, err)
	require.NoError(t, app.Catalog.CreateBook(&entities.Book{
		Title: "Kigogo", Author: "Pauline Kea", BookCode: "KIG", TotalCopies: 3, AvailableCopies: 3,
	}))
	require.NoError(t, app.Close())

	out, err := execute(t, "reconcile", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "3 copies created")
	assert.Contains(t, out, "1 books, 3 copies (3 available)")

	out, err = execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Books: 1, copies: 3 (3 available)")
	assert.Contains(t, out, "0 active")

	out, err = execute(t, "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"currency": "KES"`)
	assert.Contains(t, out, `"available_copies": 3`)
}
