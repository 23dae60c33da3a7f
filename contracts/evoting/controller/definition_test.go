package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli/node"
)

func TestReadDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "election.yml")

	content := `
id: board
name: Board election
candidates:
  - Alice
  - Bob
start: "2024-05-01T08:00:00Z"
end: "1714593600"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	def, err := readDefinition(node.FlagSet{"file": path})
	require.NoError(t, err)
	require.Equal(t, Definition{
		ID:         "board",
		Name:       "Board election",
		Candidates: []string{"Alice", "Bob"},
		Start:      "2024-05-01T08:00:00Z",
		End:        "1714593600",
	}, def)

	start, end, err := def.Window()
	require.NoError(t, err)
	require.Equal(t, int64(1714550400), start)
	require.Equal(t, int64(1714593600), end)

	def, err = readDefinition(node.FlagSet{
		"file":      path,
		"name":      "Council",
		"candidate": []interface{}{"Carol"},
		"end":       "1714600000",
	})
	require.NoError(t, err)
	require.Equal(t, "board", def.ID)
	require.Equal(t, "Council", def.Name)
	require.Equal(t, []string{"Carol"}, def.Candidates)
	require.Equal(t, "1714600000", def.End)
}

func TestReadDefinition_DefaultID(t *testing.T) {
	def, err := readDefinition(node.FlagSet{"name": "Board"})
	require.NoError(t, err)

	_, err = uuid.Parse(def.ID)
	require.NoError(t, err)

	other, err := readDefinition(node.FlagSet{})
	require.NoError(t, err)
	require.NotEqual(t, def.ID, other.ID)
}

func TestReadDefinition_Failures(t *testing.T) {
	_, err := readDefinition(node.FlagSet{"file": filepath.Join(t.TempDir(), "unknown.yml")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read file: ")

	path := filepath.Join(t.TempDir(), "election.yml")
	require.NoError(t, os.WriteFile(path, []byte("voters: 3\n"), 0600))

	_, err = readDefinition(node.FlagSet{"file": path})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode file: ")

	_, err = readDefinition(node.FlagSet{"id": "board/2024"})
	require.EqualError(t, err, "invalid id 'board/2024': '/' is not allowed")
}

func TestDefinition_Window(t *testing.T) {
	_, _, err := Definition{End: "10"}.Window()
	require.EqualError(t, err, "invalid start: missing time")

	_, _, err = Definition{Start: "10"}.Window()
	require.EqualError(t, err, "invalid end: missing time")

	_, _, err = Definition{Start: "tomorrow", End: "10"}.Window()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid start: failed to parse 'tomorrow': ")

	// The window is not checked so that the contract decides.
	start, end, err := Definition{Start: "20", End: "10"}.Window()
	require.NoError(t, err)
	require.Equal(t, int64(20), start)
	require.Equal(t, int64(10), end)
}
