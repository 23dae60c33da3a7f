// Package http implements the proxy of a node with an HTTP server.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
)

type key int

const (
	requestIDKey key = 0
)

const shutdownTimeout = 10 * time.Second

// HTTP defines a proxy http
//
// - implements proxy.Proxy
type HTTP struct {
	sync.RWMutex

	router     *mux.Router
	routes     []handlerRoute
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	started    bool
	once       sync.Once
	quit       chan struct{}
	done       chan struct{}
}

// NewHTTP creates a new proxy http. An empty address lets the system choose a
// free port.
func NewHTTP(listenAddr string) *HTTP {
	logger := ballot.Logger.With().Timestamp().Str("role", "http proxy").Logger()

	nextRequestID := func() string {
		return xid.New().String()
	}

	h := &HTTP{
		router:     mux.NewRouter(),
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	h.server = &http.Server{
		Handler:           tracing(nextRequestID)(logging(logger)(http.HandlerFunc(h.route))),
		ReadHeaderTimeout: shutdownTimeout,
	}

	return h
}

// Listen implements proxy.Proxy. It serves the requests until the proxy is
// stopped. It panics if the address cannot be bound.
func (h *HTTP) Listen() {
	h.logger.Info().Msg("Client server is starting...")

	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		h.logger.Panic().Msgf("failed to create conn '%s': %v", h.listenAddr, err)
	}

	h.Lock()
	h.ln = ln
	h.started = true
	h.Unlock()

	defer close(h.done)

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		<-h.quit
		h.logger.Info().Msg("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.server.SetKeepAlivesEnabled(false)

		err := h.server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("could not gracefully shutdown the server")
		}
	}()

	h.logger.Info().Msgf("Server is ready to handle requests at http://%s", ln.Addr())

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		h.logger.Err(err).Msgf("failed to serve on %s", ln.Addr())
		h.once.Do(func() {
			close(h.quit)
		})
	}

	<-stopped
	h.logger.Info().Msg("Server stopped")
}

// Stop implements proxy.Proxy. It stops the server and waits for it to be
// closed. It can be called multiple times.
func (h *HTTP) Stop() {
	h.once.Do(func() {
		close(h.quit)
	})

	h.RLock()
	started := h.started
	h.RUnlock()

	if started {
		<-h.done
	}
}

// GetAddr returns the address of the server if it is listening, otherwise
// nil.
func (h *HTTP) GetAddr() net.Addr {
	h.RLock()
	defer h.RUnlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements proxy.Proxy. A handler can be registered while
// the server is running. The router is rebuilt so that the requests being
// served keep the previous one.
func (h *HTTP) RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request),
	methods ...string) {

	h.Lock()
	defer h.Unlock()

	h.routes = append(h.routes, handlerRoute{
		path:    path,
		handler: handler,
		methods: methods,
	})

	router := mux.NewRouter()
	for _, r := range h.routes {
		entry := router.HandleFunc(r.path, r.handler)
		if len(r.methods) > 0 {
			entry.Methods(r.methods...)
		}
	}

	h.router = router
}

func (h *HTTP) route(w http.ResponseWriter, r *http.Request) {
	h.RLock()
	router := h.router
	h.RUnlock()

	router.ServeHTTP(w, r)
}

type handlerRoute struct {
	path    string
	handler func(http.ResponseWriter, *http.Request)
	methods []string
}

// logging is a utility function that logs the http server events
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}
				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// tracing is a utility function that adds header tracing
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = nextRequestID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
