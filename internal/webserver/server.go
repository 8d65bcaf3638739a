// Package webserver is an in-memory implementation of the admin REST API,
// used as a demo and test backend for the console.
package webserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oxyadmin/oxyadmin/internal/buildinfo"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// DefaultPrefix is where the API routes are mounted.
const DefaultPrefix = "/api/v1"

// Options configures web server behavior.
type Options struct {
	Host      string
	Port      int
	Prefix    string
	AuthToken string
	RateLimit float64
	// Empty starts with no records instead of the demo dataset.
	Empty bool
}

// Server hosts the REST API and the change feed.
type Server struct {
	prefix     string
	host       string
	port       int
	authToken  string
	rateLimit  float64
	started    time.Time
	httpServer *http.Server
	handler    http.Handler
	hub        *livefeed.Hub

	agents    *table[resource.Agent]
	tools     *table[resource.Tool]
	workflows *table[resource.Workflow]
	mas       *table[resource.MAS]

	// sysMu guards system and started.
	sysMu  sync.RWMutex
	system resource.SystemConfig
}

// New builds a server. Nothing listens until Start.
func New(opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port < 0 {
		port = 0
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	if prefix == "/" {
		prefix = DefaultPrefix
	}

	var seed resource.Dataset
	if !opts.Empty {
		seed = resource.Demo()
	}
	if seed.System.LogLevel == "" {
		seed.System.LogLevel = "INFO"
	}

	srv := &Server{
		prefix:    prefix,
		host:      host,
		port:      port,
		authToken: strings.TrimSpace(opts.AuthToken),
		rateLimit: opts.RateLimit,
		started:   time.Now(),
		hub:       livefeed.NewHub(),
		agents:    newTable(agentRules(), seed.Agents),
		tools:     newTable(toolRules(), seed.Tools),
		workflows: newTable(workflowRules(), seed.Workflows),
		mas:       newTable(masRules(), seed.MAS),
		system:    normalizeSystem(seed.System),
	}

	mux := http.NewServeMux()
	srv.setupRoutes(mux)
	srv.handler = corsMiddleware(logMiddleware(rateLimitMiddleware(srv.rateLimit, authMiddleware(srv.authToken, mux))))
	srv.httpServer = &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Handler exposes the full middleware chain, for httptest servers.
func (srv *Server) Handler() http.Handler { return srv.handler }

// Hub is the change feed the server publishes to.
func (srv *Server) Hub() *livefeed.Hub { return srv.hub }

// Prefix is the API mount point.
func (srv *Server) Prefix() string { return srv.prefix }

// Start listens and serves in a background goroutine. Port 0 picks a free
// port, reported by Addr afterwards.
func (srv *Server) Start() error {
	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return err
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		srv.port = tcpAddr.Port
		srv.httpServer.Addr = srv.Addr()
	}
	debug.LogKV("webserver", "listening", "addr", srv.Addr(), "prefix", srv.prefix)

	go func() {
		if err := srv.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.LogKV("webserver", "server stopped with error", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.httpServer.Shutdown(ctx)
}

// Addr returns the bound host:port address.
func (srv *Server) Addr() string {
	return net.JoinHostPort(srv.host, strconv.Itoa(srv.port))
}

// Port is the bound port, valid after Start.
func (srv *Server) Port() int { return srv.port }

// URL is the base URL clients connect to. The API lives under Prefix.
func (srv *Server) URL() string {
	host := srv.host
	if host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(srv.port)))
}

func (srv *Server) setupRoutes(mux *http.ServeMux) {
	registerCollection(mux, srv, srv.prefix, srv.agents)
	registerCollection(mux, srv, srv.prefix, srv.tools)
	registerCollection(mux, srv, srv.prefix, srv.workflows)
	registerCollection(mux, srv, srv.prefix, srv.mas)

	p := srv.prefix
	mux.HandleFunc("POST "+p+"/agents/{id}/test", srv.handleAgentTest)
	mux.HandleFunc("POST "+p+"/tools/{id}/test", srv.handleToolTest)
	mux.HandleFunc("POST "+p+"/workflows/{id}/run", srv.handleWorkflowRun)
	mux.HandleFunc("POST "+p+"/workflows/{id}/validate", srv.handleWorkflowValidate)
	mux.HandleFunc("POST "+p+"/mas/{id}/start", srv.handleMASLifecycle(resource.StatusActive))
	mux.HandleFunc("POST "+p+"/mas/{id}/stop", srv.handleMASLifecycle(resource.StatusInactive))
	mux.HandleFunc("POST "+p+"/mas/{id}/query", srv.handleMASQuery)

	mux.HandleFunc("GET "+p+"/system/config", srv.handleGetSystemConfig)
	mux.HandleFunc("PUT "+p+"/system/config", srv.handleUpdateSystemConfig)
	mux.HandleFunc("GET "+p+"/system/status", srv.handleSystemStatus)
	mux.HandleFunc("GET "+p+"/system/export", srv.handleSystemExport)
	mux.HandleFunc("GET "+p+"/system/download-config", srv.handleDownloadConfig)
	mux.HandleFunc("POST "+p+"/system/restart", srv.handleSystemRestart)
	mux.HandleFunc("POST "+p+"/system/import", srv.handleSystemImport)

	mux.Handle("GET "+livefeed.Path, srv.hub)

	mux.HandleFunc(p+"/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":    "oxyadmin demo backend",
			"version": buildinfo.Current().Version,
			"api":     srv.prefix,
		})
	})
}

func (srv *Server) publish(ev livefeed.Event) {
	srv.hub.Publish(ev)
}
