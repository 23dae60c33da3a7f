package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/proxy/http"
)

func TestMinimal_SetCommands(t *testing.T) {
	builder := node.NewBuilder()

	NewController().SetCommands(builder)

	app := builder.Build()
	require.NotNil(t, app)
}

func TestMinimal_OnStart(t *testing.T) {
	ctrl := NewController()
	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{AddrFlag: "127.0.0.1:0"}, inj)
	require.NoError(t, err)

	var proxy *http.HTTP
	require.NoError(t, inj.Resolve(&proxy))
	require.Nil(t, proxy.GetAddr())

	require.NoError(t, ctrl.OnStop(inj))

	// Nothing to stop when the proxy is missing.
	require.NoError(t, ctrl.OnStop(node.NewInjector()))
}
