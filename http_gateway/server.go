// Package gateway exposes registration, login and transfers over HTTP.
//
// Routes are registered on a grpc-gateway runtime.ServeMux with
// HandlePath, so the same mux can later carry generated gRPC handlers.
// Every handler is a thin adapter: parse the request, call the auth
// gateway or the transfer handler, render the result or the error.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	auth "fin-ledger/auth_service"
	trhr "fin-ledger/transactions_service/transactions_handler"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Auth      *auth.Gateway
	Transfers *trhr.Handler
	// Storage is optional; when set /health reports its reachability.
	Storage Pinger
	// SecureCookies marks the access_token cookie Secure.
	SecureCookies bool
	Log           *slog.Logger
}

// Server holds the dependencies of the HTTP handlers. It keeps no
// per-user state: the caller's identity comes from each request's token.
type Server struct {
	auth          *auth.Gateway
	transfers     *trhr.Handler
	storage       Pinger
	secureCookies bool
	log           *slog.Logger
}

func NewServer(config *Config) *Server {
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		auth:          config.Auth,
		transfers:     config.Transfers,
		storage:       config.Storage,
		secureCookies: config.SecureCookies,
		log:           log,
	}
}

// Router returns the full handler chain.
func (s *Server) Router() (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithDisablePathLengthFallback())

	routes := []struct {
		method, path string
		handler      runtime.HandlerFunc
	}{
		{http.MethodGet, "/health", s.health},
		{http.MethodPost, "/register", s.register},
		{http.MethodPost, "/login", s.login},
		{http.MethodPost, "/logout", s.logout},
		{http.MethodGet, "/transaction", s.transactionForm},
		{http.MethodPost, "/transaction", s.createTransaction},
		{http.MethodGet, "/transactions", s.listTransactions},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.path, route.handler); err != nil {
			return nil, fmt.Errorf("registering %s %s: %w", route.method, route.path, err)
		}
	}

	return s.logRequests(mux), nil
}
