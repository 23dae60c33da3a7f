// Package controller implements a controller for the HTTP proxy.
package controller

import (
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/proxy/http"
)

// AddrFlag is the name of the start flag that defines the address of the
// proxy.
const AddrFlag = "proxyaddr"

const defaultAddr = "127.0.0.1:8080"

const defaultProm = "/metrics"

// NewController returns a new minimal initializer
func NewController() node.Initializer {
	return minimal{}
}

// minimal is an initializer that creates the proxy when the node starts so that
// the other components can register their handlers. The server only listens
// after the start command of the proxy.
//
// - implements node.Initializer
type minimal struct{}

// SetCommands implements node.Initializer. It defines the proxy commands.
func (m minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.StringFlag{
		Name:     AddrFlag,
		Required: false,
		Usage:    "the address of the http proxy",
		Value:    defaultAddr,
		EnvVars:  []string{"BALLOT_PROXYADDR"},
	})

	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("HTTP proxy administration")

	sub := cmd.SetSubCommand("start")
	sub.SetDescription("start the proxy http server")
	sub.SetAction(builder.MakeAction(startAction{}))

	sub = cmd.SetSubCommand("prom")
	sub.SetDescription("registers the collectors and starts a prometheus handler. " +
		"Will fail if the path is used more than once.")
	sub.SetFlags(cli.StringFlag{
		Name:     "path",
		Required: false,
		Usage:    "the handler path",
		Value:    defaultProm,
	})
	sub.SetAction(builder.MakeAction(promAction{}))
}

// OnStart implements node.Initializer. It creates and injects the proxy.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	inj.Inject(http.NewHTTP(flags.String(AddrFlag)))

	return nil
}

// OnStop implements node.Initializer. It stops the http server.
func (m minimal) OnStop(inj node.Injector) error {
	var proxy *http.HTTP
	err := inj.Resolve(&proxy)
	if err == nil {
		proxy.Stop()
	}

	return nil
}
