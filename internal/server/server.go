// Package server provides the development server that hosts the compiler
// façade: it serves compiled component modules and stylesheets over HTTP
// and pushes reload events to connected clients over a websocket when
// component files change.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/aurelia/sfc-vite/internal/config"
	apperrors "github.com/aurelia/sfc-vite/internal/errors"
	"github.com/aurelia/sfc-vite/internal/logging"
	"github.com/aurelia/sfc-vite/internal/plugin"
	"github.com/aurelia/sfc-vite/internal/types"
	"github.com/aurelia/sfc-vite/internal/watcher"
)

const (
	// modulePrefix is the HTTP route under which virtual modules are
	// served; the remainder of the URL path is the absolute component
	// path.
	modulePrefix = "/@au/"
	// reloadPath is the websocket endpoint for reload notifications.
	reloadPath = "/__reload"

	writeTimeout = 5 * time.Second
)

// reloadMessage is the JSON payload pushed to websocket clients.
type reloadMessage struct {
	Type    string   `json:"type"`
	Modules []string `json:"modules"`
}

// Server is the dev server owning one compiler session.
type Server struct {
	cfg    *config.Config
	plugin *plugin.Plugin
	logger logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	httpServer *http.Server
}

type client struct {
	conn *websocket.Conn
}

// New creates a dev server around a plugin instance.
func New(cfg *config.Config, p *plugin.Plugin, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Server{
		cfg:     cfg,
		plugin:  p,
		logger:  logger.WithComponent("server"),
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving virtual modules and the reload
// websocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(modulePrefix, s.handleModule)
	mux.HandleFunc(reloadPath, s.handleReload)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start runs the server until ctx is canceled. It wires the file watcher to
// the plugin's hot-update hook and invokes the plugin's post-configuration
// callback before accepting traffic.
func (s *Server) Start(ctx context.Context) error {
	postConfigure := s.plugin.ConfigureServer(s)
	postConfigure()

	root, err := s.cfg.AbsRoot()
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	fw, err := watcher.New(watcher.DefaultDebounce, s.logger)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.AddRecursive(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	fw.Start(ctx, func(paths []string) {
		for _, path := range paths {
			s.plugin.HandleHotUpdate(path, nil)
		}
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info(ctx, "dev server listening", "addr", addr, "root", root)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleModule serves compiled module or stylesheet text for the component
// path encoded in the URL.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	target := "/" + strings.TrimPrefix(r.URL.Path, modulePrefix)
	id := types.VirtualPrefix + target

	out, handled, err := s.plugin.Load(r.Context(), id)
	if !handled {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	componentPath := strings.TrimSuffix(target, ".css")
	s.plugin.Graph().Record(componentPath, id)

	if strings.HasSuffix(target, types.StyleExt) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	}
	_, _ = w.Write([]byte(out))
}

// writeError maps compiler errors to HTTP statuses and reports the path
// and cause to the developer.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if apperrors.IsType(err, apperrors.TypeFileNotFound) {
		status = http.StatusNotFound
	}

	s.logger.Error(r.Context(), err, "load failed", "url", r.URL.Path)
	http.Error(w, err.Error(), status)
}

// handleReload upgrades to a websocket and keeps the connection registered
// until the client goes away.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // local dev tool, any origin may connect
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = conn.CloseNow()
	}()

	// Reads are discarded; the read loop only detects disconnect.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// NotifyReload pushes a reload event for the given module ids to every
// connected client. Implements plugin.ReloadNotifier.
func (s *Server) NotifyReload(modules []string) {
	payload, err := json.Marshal(reloadMessage{Type: "reload", Modules: modules})
	if err != nil {
		return
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
			s.logger.Debug(ctx, "dropping unresponsive reload client", "error", err.Error())
		}
		cancel()
	}
}

// handleIndex answers a minimal status page so hitting the server root in a
// browser confirms it is alive.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "ausfc dev server\nmodules: %s<absolute path>\nreload:  ws://%s%s\n",
		modulePrefix, r.Host, reloadPath)
}
