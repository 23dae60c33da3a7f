// Package main implements the ballot node. It runs a single ledger with the
// election contract and serves the elections over HTTP.
//
//	ballot --config /tmp/node start --expiry 30s --proxyaddr 127.0.0.1:8080
//	ballot --config /tmp/node proxy start
//	ballot --config /tmp/node evoting create --file election.yml
//	ballot keys new --save voter.key
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	evoting "go.dedis.ch/ballot/contracts/evoting/controller"
	ledger "go.dedis.ch/ballot/core/ledger/controller"
	db "go.dedis.ch/ballot/core/store/kv/controller"
	keys "go.dedis.ch/ballot/crypto/ed25519/command"
	proxy "go.dedis.ch/ballot/proxy/http/controller"
)

var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, inits ...cli.Initializer) error {
	builder := node.NewBuilder(
		db.NewController(),
		proxy.NewController(),
		ledger.NewController(),
		evoting.NewController(),
	)

	inits = append([]cli.Initializer{keys.Initializer{}}, inits...)

	for _, init := range inits {
		init.SetCommands(builder)
	}

	return builder.Build().Run(args)
}
