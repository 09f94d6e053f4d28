package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// DefaultHealthInterval is how often the storage backend is pinged.
const DefaultHealthInterval = 10 * time.Second

type AgentConfig struct {
	// Addr is the single listen address; gRPC and HTTP share it.
	Addr   string
	Server *Server
	// Storage, when set, drives the gRPC health status.
	Storage        Pinger
	HealthInterval time.Duration
	Log            *slog.Logger
}

// Agent runs the HTTP API and the gRPC health service on one port.
type Agent struct {
	Config AgentConfig

	listener net.Listener
	// splits incoming connections between gRPC and HTTP/1
	mux    cmux.CMux
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	stopWatch context.CancelFunc
	errs      chan error

	shutdown     bool
	shutdownLock sync.Mutex
}

// NewAgent binds the listener and starts serving in the background.
func NewAgent(config AgentConfig) (*Agent, error) {
	if config.Log == nil {
		config.Log = slog.Default()
	}
	if config.HealthInterval <= 0 {
		config.HealthInterval = DefaultHealthInterval
	}
	a := &Agent{
		Config: config,
		errs:   make(chan error, 3),
	}
	setup := []func() error{
		// order matters here
		a.setupMux,
		a.setupGRPC,
		a.setupHTTP,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			if a.listener != nil {
				_ = a.listener.Close()
			}
			return nil, err
		}
	}

	go a.serve()
	return a, nil
}

func (a *Agent) setupMux() error {
	ln, err := net.Listen("tcp", a.Config.Addr)
	if err != nil {
		return err
	}
	a.listener = ln
	a.mux = cmux.New(ln)
	return nil
}

func (a *Agent) setupGRPC() error {
	a.grpc, a.health = NewGRPCServer(a.Config.Log)

	// grpc-go clients wait for the server SETTINGS frame before sending
	// headers, so the matcher has to answer it.
	grpcLn := a.mux.MatchWithWriters(
		cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"),
	)
	go func() {
		if err := a.grpc.Serve(grpcLn); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			a.errs <- err
		}
	}()

	if a.Config.Storage != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopWatch = cancel
		go WatchStorage(ctx, a.Config.Storage, a.health, a.Config.HealthInterval, a.Config.Log)
	}
	return nil
}

func (a *Agent) setupHTTP() error {
	router, err := a.Config.Server.Router()
	if err != nil {
		return err
	}
	a.http = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// everything that is not gRPC is plain HTTP
	httpLn := a.mux.Match(cmux.Any())
	go func() {
		err := a.http.Serve(httpLn)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			a.errs <- err
		}
	}()
	return nil
}

func (a *Agent) serve() {
	err := a.mux.Serve()
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, cmux.ErrServerClosed) {
		a.errs <- err
	}
}

// Addr is the bound address, useful when Config.Addr asked for port 0.
func (a *Agent) Addr() net.Addr {
	return a.listener.Addr()
}

// Err reports the first fatal serving error.
func (a *Agent) Err() <-chan error {
	return a.errs
}

// Shutdown drains HTTP requests and gRPC calls, then closes the listener.
// Repeated calls are no-ops.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()

	if a.shutdown {
		return nil
	}
	a.shutdown = true

	if a.stopWatch != nil {
		a.stopWatch()
	}
	a.health.Shutdown()

	err := a.http.Shutdown(ctx)
	a.grpc.GracefulStop()
	a.mux.Close()
	return err
}
