package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/pkg/models"
)

type env struct {
	dataDir  string
	vault    string
	settings string
}

func newEnv(t *testing.T) env {
	t.Helper()
	e := env{dataDir: t.TempDir(), vault: t.TempDir()}
	e.settings = filepath.Join(e.dataDir, "settings.json")

	raw, err := json.Marshal(map[string]any{"vault_root": e.vault})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.settings, raw, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(e.vault, "note.md"), []byte("remember me"), 0o644))

	t.Setenv("RECALL_DATA_DIR", e.dataDir)
	t.Setenv("RECALL_CONFIG", "")
	return e
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.settings}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_ReviewSession(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "track", "note.md")
	require.NoError(t, err, out)
	var tracked models.TrackResult
	require.NoError(t, json.Unmarshal([]byte(out), &tracked))
	assert.Equal(t, 1, tracked.Added)

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "note.md\n", out)

	out, err = e.run(t, "build")
	require.NoError(t, err, out)
	var report models.QueueReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.NewQueued)

	out, err = e.run(t, "next")
	require.NoError(t, err, out)
	var next map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &next))
	assert.Equal(t, "note", next["question"])
	assert.Equal(t, "remember me", next["answer"])
	assert.EqualValues(t, 0, next["item"])

	out, err = e.run(t, "review", "0", "Correct")
	require.NoError(t, err, out)
	var result models.ReviewResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Correct)

	out, err = e.run(t, "next")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to review")

	out, err = e.run(t, "stats")
	require.NoError(t, err)
	var stats models.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Items)
	assert.Equal(t, 1, stats.NewAddedToday)
}

func TestCLI_Errors(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "track", "missing.md")
	assert.Error(t, err)

	_, err = e.run(t, "review", "x", "Correct")
	assert.ErrorContains(t, err, "invalid item index")

	_, err = e.run(t, "reset")
	assert.ErrorContains(t, err, "--yes")

	out, err := e.run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "reset")
}

func TestCLI_Outcomes(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "outcomes")
	require.NoError(t, err)
	assert.Equal(t, "Wrong\nCorrect\n", out)
}

func TestCLI_FoldersAndMove(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.vault, "deck"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.vault, "deck", "a.md"), []byte("a"), 0o644))

	out, err := e.run(t, "track-folder", "deck")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"added": 1`)

	out, err = e.run(t, "move", "--backend", "sqlite")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(e.dataDir, "recall.db"))

	out, err = e.run(t, "untrack-folder", "deck")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"removed": 1`)
}
