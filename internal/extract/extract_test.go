package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_HeaderKeyedRows(t *testing.T) {
	in := strings.NewReader("Client,Project,Hours\nAcme,Website,8\nBeta,App,4.5\n")

	rows, err := Read(in)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0]["Client"])
	assert.Equal(t, "4.5", rows[1]["Hours"])
}

func TestRead_RaggedRow(t *testing.T) {
	in := strings.NewReader("Client,Project,Note\nAcme,Website\n")

	rows, err := Read(in)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, ok := rows[0]["Note"]
	assert.False(t, ok)
}

func TestRead_EmptyInput(t *testing.T) {
	rows, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	header := []string{"client", "hours"}
	require.NoError(t, WriteFile(path, header, [][]string{{"acme", "8"}}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := Read(f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "acme", rows[0]["client"])
}
