package cmd

import (
	"context"
	"embed"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/turnsearch/cmd/web/components"
	"github.com/rubiojr/turnsearch/cmd/web/components/types"
	"github.com/rubiojr/turnsearch/pkg/api"
	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/config"
	"github.com/rubiojr/turnsearch/pkg/log"
	"github.com/rubiojr/turnsearch/pkg/metrics"
	"github.com/rubiojr/turnsearch/pkg/render"
	"github.com/rubiojr/turnsearch/pkg/session"
	"github.com/rubiojr/turnsearch/pkg/textclean"
	"github.com/rubiojr/turnsearch/pkg/version"
)

//go:embed web/static/*
var staticFS embed.FS

// WebCommand creates the web command with both API and UI
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the search web interface and its API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides web.port)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides web.host)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return startWebServer(ctx, c.String("config"), c.String("host"), c.String("port"))
		},
	}
}

// WebServer holds the server configuration and dependencies
type WebServer struct {
	config    *config.Config
	apiServer *api.Server
	log       *log.Logger
}

func newWebServer(cfg *config.Config, apiServer *api.Server) *WebServer {
	return &WebServer{
		config:    cfg,
		apiServer: apiServer,
		log:       log.ForService("web"),
	}
}

// Routes returns the HTTP handler serving the UI, the API and metrics.
func (s *WebServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	s.apiServer.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(api.Compress)
		r.Get("/", s.handleHome)
		r.Get("/static/*", s.handleStatic)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func startWebServer(ctx context.Context, configPath, host, port string) error {
	cfg, client, err := loadClient(configPath)
	if err != nil {
		return err
	}
	if host == "" {
		host = cfg.Web.Host
	}
	if port == "" {
		port = cfg.Web.Port
	}

	apiServer := api.NewServer(upstreamFor(cfg, client))
	webServer := newWebServer(cfg, apiServer)
	l := webServer.log

	server := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           webServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go watchConfig(ctx, configPath, func() {
		client, err := reloadUpstream(configPath, apiServer)
		if err != nil {
			l.Warnf("failed to reload configuration: %v", err)
			return
		}
		l.Infof("configuration reloaded, backend %s", client.BaseURL())
	})

	errCh := make(chan error, 1)
	go func() {
		l.Infof("Starting web server on http://%s", server.Addr)
		l.Infof("Backend: %s", client.BaseURL())
		l.Infof("Available endpoints:")
		l.Infof("  GET / - Search page (?q=&collection= for server-side results)")
		l.Infof("  GET /api/collections - List collections")
		l.Infof("  GET /api/autocomplete?prefix=&collection= - Suggestions")
		l.Infof("  GET /api/search?search=&collection= - Search")
		l.Infof("  GET /api/live - Live search websocket")
		l.Infof("  GET /health - Health check")
		l.Infof("  GET /metrics - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	l.Infof("Shutting down web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	apiServer.Close()
	return server.Shutdown(shutdownCtx)
}

func upstreamFor(cfg *config.Config, client *backend.Client) api.Upstream {
	return api.Upstream{Backend: client, Delay: cfg.AutocompleteDelay.Duration}
}

// reloadUpstream rebuilds the backend client from the configuration file
// and hands it to the API server. Open live sessions keep their client.
func reloadUpstream(configPath string, apiServer *api.Server) (*backend.Client, error) {
	cfg, client, err := loadClient(configPath)
	if err != nil {
		return nil, err
	}
	apiServer.SetUpstream(upstreamFor(cfg, client))
	return client, nil
}

// watchConfig calls reload whenever the configuration file changes, until
// ctx is done.
func watchConfig(ctx context.Context, configPath string, reload func()) {
	l := log.ForService("web")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.Warnf("failed to create config file watcher: %v", err)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			l.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(configPath); err != nil {
		l.Warnf("failed to watch config file %s: %v", configPath, err)
		return
	}
	l.Debugf("watching config file for changes: %s", configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			l.Debugf("config file changed: %s (event: %s)", event.Name, event.Op.String())

			// Editors often replace the file atomically, which drops the watch.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					l.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					l.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.Warnf("config file watcher error: %v", err)
		}
	}
}

// handleHome renders the search page. With a q parameter the search runs
// server-side, so the page works without JavaScript.
func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b := s.apiServer.Upstream().Backend

	data := types.PageData{
		Title:      "Turner Search",
		Query:      q.Get("q"),
		Collection: backend.CollectionID(q.Get("collection")),
		Version:    version.APIVersion(),
	}

	cols, err := b.Collections(r.Context())
	if err != nil {
		s.log.Warnf("loading collections: %v", err)
		data.Error = "Collections are unavailable right now."
	}
	data.Collections = cols
	if !(session.State{Collections: cols}).HasCollection(data.Collection) {
		if data.Collection != "" {
			s.log.Debugf("unknown collection %q, using the default", data.Collection)
		}
		data.Collection = ""
		if len(cols) > 0 {
			data.Collection = cols[0].ID
		}
	}

	if data.Query != "" {
		data.Searched = true
		results := []backend.SearchResult{}
		if query := textclean.Clean(data.Query); query != "" {
			found, err := b.Search(r.Context(), query, data.Collection)
			if err != nil {
				s.log.Warnf("search %q: %v", query, err)
				data.Error = "Search failed, please try again."
			} else {
				results = found
			}
		}

		html, err := render.HTML(render.View(results))
		if err != nil {
			http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
			return
		}
		data.ResultsHTML = html
		data.ResultCount = len(results)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := components.Index(data).Render(r.Context(), w); err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
	}
}

// handleStatic serves static assets from embedded files
func (s *WebServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	filePath := "web/static/" + strings.TrimPrefix(path, "/static/")
	content, err := staticFS.ReadFile(filePath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch {
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(path, ".svg"):
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(content); err != nil {
		s.log.Warnf("writing static content: %v", err)
	}
}
