package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"screenshot-organizer/internal/api"
	"screenshot-organizer/internal/cache"
	"screenshot-organizer/internal/config"
	"screenshot-organizer/internal/database"
	"screenshot-organizer/internal/logging"
	"screenshot-organizer/internal/organizer"
	"screenshot-organizer/internal/tools"
	"screenshot-organizer/internal/vision"
	"screenshot-organizer/internal/websocket"
)

type App struct {
	config     *config.Config
	configPath string
	cachePath  string
	logger     *slog.Logger
	db         *database.DB
	cache      *cache.Cache
	vision     *vision.Client
	organizer  *organizer.Organizer
	tools      *tools.Service
}

// Init loads configuration and wires every component. Without a config file
// the defaults are used.
func (app *App) Init() error {
	cfg := config.Default()
	if app.configPath != "" {
		loaded, err := config.LoadConfig(app.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	app.config = cfg

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	app.logger = logger

	var analysisCache vision.AnalysisCache
	var journal tools.Journal
	if cfg.Database.Driver != "" {
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.db = db
		analysisCache = db
		journal = db
	} else if path := app.analysisCachePath(); path != "" {
		cacheClient := cache.NewCache(path)
		if err := cacheClient.Load(); err != nil {
			logger.Warn("failed to load cache", "path", path, "error", err)
		}
		app.cache = cacheClient
		analysisCache = cacheClient
	}

	visionClient, err := vision.NewClient(&cfg.Ollama, analysisCache, logger)
	if err != nil {
		app.Close()
		return fmt.Errorf("failed to initialize vision client: %w", err)
	}
	app.vision = visionClient

	app.organizer = organizer.New(logger)
	app.tools = tools.NewService(app.organizer, visionClient, journal, logger)
	return nil
}

func (app *App) analysisCachePath() string {
	if app.cachePath != "" {
		return app.cachePath
	}
	return app.config.Cache.Path
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	return err
}

// Run serves the tool surface over HTTP and websocket until interrupted.
func (app *App) Run() error {
	lock := flock.New(app.config.Server.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire server lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another server holds %s", app.config.Server.LockPath)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(app.config.Server.LockPath)
	}()

	var history api.History
	if app.db != nil {
		history = app.db
	}
	apiServer := api.NewServer(app.tools, history, app.logger)
	wsHandler := websocket.NewHandler(app.tools, app.logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	server := &http.Server{
		Addr:              app.config.Server.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", server.Addr, "model", app.vision.Model())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
