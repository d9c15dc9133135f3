// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lumina/internal/api"
	"github.com/starford/lumina/internal/editorservice"
	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/imagecache"
	"github.com/starford/lumina/internal/mcpserver"
	"github.com/starford/lumina/internal/project"
	"github.com/starford/lumina/internal/render"
	"github.com/starford/lumina/internal/sse"
	"github.com/starford/lumina/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// components is everything the HTTP, MCP and render entry points share.
type components struct {
	logger  *slog.Logger
	db      *project.DB
	assets  *storage.Assets
	images  *imagecache.Cache
	service *editorservice.Service
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens storage and the project database and wires the editor service.
// The caller must close c.db.
func build(cfg *Config, logger *slog.Logger, publisher editorservice.Publisher) (*components, error) {
	if err := os.MkdirAll(cfg.Assets.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}
	fs, err := storage.NewFS(cfg.Assets.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	assets := storage.NewAssets(fs)

	fonts := render.DefaultFonts()
	if cfg.Fonts.EmojiPath != "" {
		if fonts, err = render.NewFonts(cfg.Fonts.EmojiPath); err != nil {
			return nil, fmt.Errorf("load fonts: %w", err)
		}
	}

	db, err := project.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init projects: %w", err)
	}

	images := imagecache.New(imagecache.NewStoreLoader(assets))
	filters := filter.NewEngine()
	comp := render.NewCompositor(images, filters, fonts, logger)
	pipeline := export.New(comp, assets,
		export.WithTempDir(cfg.Export.TempDir),
		export.WithMaxSize(cfg.Export.MaxSize),
		export.WithLogger(logger),
	)

	opts := []editorservice.Option{
		editorservice.WithLimits(cfg.Editor.Limits()),
		editorservice.WithFilters(filters),
		editorservice.WithExportDefaults(cfg.Export.Defaults()),
		editorservice.WithLogger(logger),
	}
	if publisher != nil {
		opts = append(opts, editorservice.WithPublisher(publisher))
	}
	svc := editorservice.New(db, assets, comp, pipeline, opts...)

	return &components{logger: logger, db: db, assets: assets, images: images, service: svc}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("assets_path", cfg.Assets.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Editor.ChangeThrottle)
	defer broker.Close()

	c, err := build(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.db.Close()

	apiRouter := api.NewRouter(c.service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.db.Stats(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch source images so edited or removed files are reloaded.
	g.Go(func() error {
		err := imagecache.Watch(gCtx, c.images, c.assets.Root(), logger, func(kind, id string) {
			typ := sse.EventAssetUpdated
			if kind == "deleted" {
				typ = sse.EventAssetDeleted
			}
			broker.Publish(sse.Event{Type: typ, Data: map[string]string{"path": id}})
		})
		if err != nil {
			logger.Warn("image watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	c, err := build(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.service, app.version).ServeStdio()
}

// RenderProject exports a saved project and, when out is set, copies the
// result there. It returns the stored export.
func RenderProject(ctx context.Context, projectID, out string, eo export.Options, opts ...Option) (export.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return export.Result{}, err
	}
	logger := newLogger(app.config, os.Stderr)

	c, err := build(app.config, logger, nil)
	if err != nil {
		return export.Result{}, err
	}
	defer c.db.Close()

	res, err := c.service.ExportProject(ctx, projectID, eo)
	if err != nil {
		return export.Result{}, err
	}
	if out == "" {
		return res, nil
	}
	data, err := c.assets.Read(ctx, res.Location)
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", out, err)
	}
	return res, nil
}
