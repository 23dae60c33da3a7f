package controller

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/proxy/http"
	"golang.org/x/xerrors"
)

var (
	defaultRetry = 50
	retryDelay   = 100 * time.Millisecond
)

type startAction struct{}

// Execute implements node.ActionTemplate. It starts the proxy http server and
// waits for it to listen.
func (a startAction) Execute(ctx node.Context) error {
	var proxyhttp *http.HTTP

	err := ctx.Injector.Resolve(&proxyhttp)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy: %v", err)
	}

	if proxyhttp.GetAddr() != nil {
		return xerrors.Errorf("proxy already listening on %s", proxyhttp.GetAddr())
	}

	go proxyhttp.Listen()

	for i := 0; i < defaultRetry && proxyhttp.GetAddr() == nil; i++ {
		time.Sleep(retryDelay)
	}

	if proxyhttp.GetAddr() == nil {
		return xerrors.New("failed to start proxy server")
	}

	fmt.Fprintf(ctx.Out, "started proxy server on %s", proxyhttp.GetAddr().String())

	return nil
}

type promAction struct{}

// Execute implements node.ActionTemplate. It registers the Prometheus handler.
func (a promAction) Execute(ctx node.Context) error {
	var proxyhttp *http.HTTP

	err := ctx.Injector.Resolve(&proxyhttp)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy: %v", err)
	}

	path := ctx.Flags.String("path")

	registry := prometheus.NewRegistry()

	for _, c := range ballot.PromCollectors {
		err = registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register: %v", err)
		}
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	proxyhttp.RegisterHandler(path, handler.ServeHTTP)
	fmt.Fprintf(ctx.Out, "registered prometheus service on %q", path)

	return nil
}
