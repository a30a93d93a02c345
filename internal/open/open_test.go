package open

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

func writeTextLog(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nb_io.log")
	w := record.NewWriter(path, record.FormatText)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Append(record.Record{
			EventTime:    time.Date(2025, 3, 1, 12, 0, i, 0, time.UTC),
			NotebookPath: "/nb/a.ipynb",
			CellIndex:    i + 1,
			CellID:       "c",
			Input:        "x = 1",
		}))
	}
	return path
}

func TestRecordLine(t *testing.T) {
	path := writeTextLog(t, 3)

	first, err := RecordLine(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := RecordLine(path, 1)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	assert.True(t, strings.HasPrefix(lines[second-1], "# Snapshot "))

	_, err = RecordLine(path, 3)
	assert.Error(t, err)
}

func TestEditorCommand(t *testing.T) {
	tests := []struct {
		editor string
		want   []string
	}{
		{"nvim", []string{"nvim", "+7", "/l"}},
		{"/usr/bin/vim", []string{"/usr/bin/vim", "+7", "/l"}},
		{"code", []string{"code", "--goto", "/l:7"}},
		{"less", []string{"less", "+7", "/l"}},
		{"nano", []string{"nano", "/l"}},
	}
	for _, tt := range tests {
		t.Run(tt.editor, func(t *testing.T) {
			assert.Equal(t, tt.want, editorCommand(tt.editor, "/l", 7).Args)
		})
	}
}

func TestOpenLogRunsEditor(t *testing.T) {
	path := writeTextLog(t, 2)
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := filepath.Join(dir, "fake-less")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+argsFile+"\n"), 0o755))
	t.Setenv("EDITOR", script)

	require.NoError(t, OpenLog(path, 1))

	line, err := RecordLine(path, 1)
	require.NoError(t, err)
	got, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "+"+strconv.Itoa(line)+" "+path+"\n", string(got))

	assert.Error(t, OpenLog(filepath.Join(dir, "missing.log"), 0))
}
