package handler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yumyai/ggenrich/pkg/handler/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteOutputsStopsAtFirstFailure(t *testing.T) {
	app := newTestApp(t, "")
	dir := t.TempDir()
	blocker := writeFile(t, dir, "plain", "")

	first := filepath.Join(dir, "first.csv")
	third := filepath.Join(dir, "third.csv")
	written, err := app.writeOutputs(
		output{first, []byte("a\n")},
		output{filepath.Join(blocker, "second.csv"), []byte("b\n")},
		output{third, []byte("c\n")},
	)
	require.Error(t, err)
	// Files before the failure stay; the slice names them.
	assert.Equal(t, []string{first}, written)
	assert.Equal(t, "a\n", readFile(t, first))
	assertMissing(t, third)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestHandlerLogsCarryRunID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	app := newTestApp(t, "")
	app.Log = zap.New(core).With(zap.String("run_id", app.RunID))

	dir := t.TempDir()
	req := request.PanarooRequest{
		Input:     writeFile(t, dir, "gpa.csv", panaroo),
		Genome:    "G1",
		MatrixOut: filepath.Join(dir, "upset_matrix.tsv"),
		CoreOut:   filepath.Join(dir, "core_genes.tsv"),
		OutDir:    dir,
	}
	_, err := app.ExtractPanaroo(context.Background(), req)
	require.NoError(t, err)

	wrote := logs.FilterMessage("Wrote").All()
	require.Len(t, wrote, 3)
	for _, e := range logs.All() {
		assert.Equal(t, "test-run", e.ContextMap()["run_id"], e.Message)
	}
}

func TestNewAppContextLogger(t *testing.T) {
	app := NewAppContext(newTestApp(t, "").Config, "run-42")
	require.NotNil(t, app.Log)
	assert.Equal(t, "run-42", app.RunID)
	assert.NotNil(t, app.Lookups)
}
