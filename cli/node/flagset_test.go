package node

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlagSet_Getters(t *testing.T) {
	fset := FlagSet{
		"config":    "/tmp/node",
		"candidate": []interface{}{"Alice", "Bob"},
		"expiry":    float64(time.Minute),
		"batch":     100,
		"force":     true,
		"wrong":     struct{}{},
	}

	require.Equal(t, "/tmp/node", fset.String("config"))
	require.Equal(t, "/tmp/node", fset.Path("config"))
	require.Equal(t, []string{"Alice", "Bob"}, fset.StringSlice("candidate"))
	require.Equal(t, time.Minute, fset.Duration("expiry"))
	require.Equal(t, 100, fset.Int("batch"))
	require.True(t, fset.Bool("force"))

	require.Equal(t, "", fset.String("wrong"))
	require.Equal(t, "", fset.Path("wrong"))
	require.Nil(t, fset.StringSlice("wrong"))
	require.Equal(t, time.Duration(0), fset.Duration("batch"))
	require.Equal(t, 0, fset.Int("wrong"))
	require.False(t, fset.Bool("wrong"))
	require.False(t, fset.Bool("unknown"))
}

func TestFlagSet_Int(t *testing.T) {
	fset := FlagSet{"a": 20, "b": "oops", "c": 30.0, "d": 30.1}

	require.Equal(t, 20, fset.Int("a"))
	require.Equal(t, 0, fset.Int("b"))
	require.Equal(t, 30, fset.Int("c"))
	require.Equal(t, 0, fset.Int("d"))
}

// The flags are sent to the daemon in JSON and must be read the same way on
// the other side.
func TestFlagSet_JSON(t *testing.T) {
	fset := FlagSet{
		"election":  "board",
		"candidate": []string{"Alice"},
		"index":     3,
		"expiry":    time.Second,
		"force":     true,
	}

	data, err := json.Marshal(fset)
	require.NoError(t, err)

	decoded := FlagSet{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, "board", decoded.String("election"))
	require.Equal(t, []string{"Alice"}, decoded.StringSlice("candidate"))
	require.Equal(t, 3, decoded.Int("index"))
	require.Equal(t, time.Second, decoded.Duration("expiry"))
	require.True(t, decoded.Bool("force"))
}
