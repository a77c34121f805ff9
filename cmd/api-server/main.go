package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"repackhub/internal/catalog"
	"repackhub/internal/notify"
	"repackhub/internal/sources"
	"repackhub/pkg/database"
	"repackhub/pkg/kvstore"
	"repackhub/pkg/utils"
)

func main() {
	cfg := utils.LoadServerConfig()

	catalogDB := database.MustOpen(database.DefaultConfig())
	defer catalogDB.Close()

	if err := database.Migrate(catalogDB); err != nil {
		log.Fatalf("catalog db migrate failed: %v", err)
	}

	store, err := kvstore.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("failed to open source store: %v", err)
	}
	defer store.Close()

	sourcesSub, err := store.Sublevel("sources")
	if err != nil {
		log.Fatalf("open sources sublevel: %v", err)
	}
	repacksSub, err := store.Sublevel("repacks")
	if err != nil {
		log.Fatalf("open repacks sublevel: %v", err)
	}

	if cfg.StoreDebug {
		zlog, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("init store logger: %v", err)
		}
		defer zlog.Sync()
		sourcesSub = kvstore.WithLogger(zlog, "sources", sourcesSub)
		repacksSub = kvstore.WithLogger(zlog, "repacks", repacksSub)
	}

	repo := sources.NewRepo(sourcesSub, repacksSub)
	catalogRepo := catalog.NewRepo(catalogDB)
	service := sources.NewService(repo, catalogRepo, cfg.FetchTimeout)

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := notify.NewHub()
	router.GET("/ws", notify.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": store.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := catalogDB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	handler := sources.NewHandler(service, repo, hub)
	handler.RegisterRoutes(router.Group("/sources"))

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
