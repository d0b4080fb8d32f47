package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccstock-backend/internal/feed"
	"ccstock-backend/internal/model"
	"ccstock-backend/internal/notification"
	"ccstock-backend/internal/projection"
)

func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "ccstock.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "import", "current"})
}

func TestImportAndCurrent(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := run(t, "CC0001, CC0002\nnot-a-machine", "--config", cfg, "import", "machines")
	require.NoError(t, err)
	assert.Contains(t, out, "added 2, already present 0")
	assert.Contains(t, out, `rejected "not-a-machine"`)

	out, err = run(t, "CC0002", "--config", cfg, "import", "machines")
	require.NoError(t, err)
	assert.Contains(t, out, "added 0, already present 1")

	_, err = run(t, "A1 A2", "--config", cfg, "import", "locations")
	require.NoError(t, err)

	out, err = run(t, "", "--config", cfg, "current", "--json", "-q", "cc0002")
	require.NoError(t, err)
	var rows []projection.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "CC0002", rows[0].Machine.ID)
	assert.Nil(t, rows[0].Latest)
}

func TestImport_RejectsUnknownKind(t *testing.T) {
	_, err := run(t, "", "--config", writeSQLiteConfig(t), "import", "widgets")
	assert.ErrorContains(t, err, "unknown import kind")
}

func TestWriteTable(t *testing.T) {
	loc := "Shelf-1"
	rows := []projection.Row{
		{Machine: model.Machine{ID: "CC0001"}, Latest: &model.Placement{MachineID: "CC0001", LocationID: &loc, Timestamp: time.Now(), UserEmail: "ops@example.com"}},
		{Machine: model.Machine{ID: "CC0002"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "MACHINE"))
	assert.Contains(t, lines[1], "Shelf-1")
	assert.Contains(t, lines[1], "ops@example.com")
	assert.Contains(t, lines[2], "-")
}

func TestLocalPublishers_PushOnlyPlacementsMadeHere(t *testing.T) {
	hub := feed.NewHub()
	live := projection.NewLive(nil)
	hub.Subscribe(func(p model.Placement) { live.Apply(p) })
	pool := notification.NewWorkerPool(1, nil, nil, nil)
	pub := localPublishers(hub, pool, nil)

	loc := "A1"
	pub.Publish(model.Placement{ID: 1, MachineID: "CC0001", LocationID: &loc})
	// The relay hands placements from other instances straight to the hub.
	hub.Publish(model.Placement{ID: 2, MachineID: "CC0002", LocationID: &loc})

	assert.Len(t, pool.Jobs(), 1)
	_, ok := live.Get("CC0002")
	assert.True(t, ok, "relayed placements still update the projection")

	assert.NotPanics(t, func() {
		localPublishers(hub, nil, nil).Publish(model.Placement{ID: 3, MachineID: "CC0003"})
	})
}
