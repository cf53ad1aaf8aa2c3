package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/alagerbyemene-code/Appchat/internal/api"
	"github.com/alagerbyemene-code/Appchat/internal/auth"
	"github.com/alagerbyemene-code/Appchat/internal/config"
	"github.com/alagerbyemene-code/Appchat/internal/hub"
	"github.com/alagerbyemene-code/Appchat/internal/rooms"
	"github.com/alagerbyemene-code/Appchat/internal/router"
	"github.com/alagerbyemene-code/Appchat/internal/store"
	"github.com/alagerbyemene-code/Appchat/internal/ws"
)

// Application wires every component together. Initialization order follows
// the dependency chain: store, room catalog, registry, router, hub, API,
// WebSocket handler, HTTP server.
type Application struct {
	config     *config.Config
	store      *store.Manager
	catalog    *rooms.Catalog
	registry   *ws.Registry
	chatRouter *router.Router
	chatHub    *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
}

func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storeManager, err := store.NewManager(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	catalog := rooms.NewCatalog(storeManager)
	if err := catalog.Load(context.Background()); err != nil {
		_ = storeManager.Close()
		return nil, err
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	registry := ws.NewRegistry(catalog)
	chatRouter := router.NewRouter(registry, storeManager)
	chatHub := hub.New(chatRouter)
	apiServer := api.NewServer(storeManager, tokens, catalog, registry, chatRouter, cfg.Uploads)
	wsHandler := ws.NewHandler(tokens, storeManager, registry, chatHub, cfg.WebSocket)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/uploads/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      storeManager,
		catalog:    catalog,
		registry:   registry,
		chatRouter: chatRouter,
		chatHub:    chatHub,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start launches the hub and the HTTP listener. Returns once the listener is
// up or startup failed.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("app: starting on %s", app.httpServer.Addr)

	if err := app.chatHub.Start(); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		_ = app.chatHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("app: started")
		return nil
	case <-ctx.Done():
		_ = app.chatHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP, hub, connections, store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("app: shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("app: http shutdown error: %v", err)
	}
	if err := app.chatHub.Stop(); err != nil && err != hub.ErrHubNotRunning {
		log.Printf("app: hub shutdown error: %v", err)
	}
	for _, conn := range app.registry.ListAll() {
		_ = conn.Close()
	}
	if err := app.store.Close(); err != nil {
		log.Printf("app: store shutdown error: %v", err)
	}

	log.Printf("app: shutdown complete")
	return nil
}

// Addr returns the configured listen address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
