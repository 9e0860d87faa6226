package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tusach/internal/auth"
	"tusach/internal/bookmarks"
	"tusach/internal/books"
	"tusach/internal/epub"
	"tusach/internal/notify"
	"tusach/internal/ratelimit"
	"tusach/internal/reviews"
	"tusach/internal/search"
	"tusach/internal/searchindex"
	synchub "tusach/internal/sync"
	"tusach/pkg/config"
	"tusach/pkg/database"
)

func main() {
	cfg := config.MustLoad()

	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// Search-mirror repair is best effort at startup: the catalog keeps
	// serving with degraded search until `tusach-migrate` is run by hand.
	if res, err := searchindex.Ensure(context.Background(), db); err != nil {
		log.Printf("[searchindex] ensure failed (run tusach-migrate to repair): %v", err)
	} else if res.Rebuilt {
		log.Printf("[searchindex] mirror rebuilt")
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	limiter := ratelimit.New(cfg.RatePerSec, cfg.RateBurst)
	router.Use(limiter.Middleware())

	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub))
	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub)

	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(cfg.NotifyAddr, registry, nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          cfg.DBPath,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Search (public)
	searchRepo := search.NewRepo(db)
	search.NewHandler(searchRepo).RegisterRoutes(router.Group("/search"))

	// Catalog (public)
	booksRepo := books.NewRepo(db)
	booksHandler := books.NewHandler(booksRepo)
	booksGroup := router.Group("/books")
	booksHandler.RegisterRoutes(booksGroup)
	booksHandler.RegisterGenreRoutes(router.Group("/genres"))

	// EPUB artifacts (public)
	epubBuilder := epub.NewBuilder(db, cfg.EpubDir)
	epub.NewHandler(epubBuilder, booksRepo).RegisterRoutes(booksGroup)

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTTTL,
	}
	authRepo := auth.NewRepo(db)
	auth.NewHandler(authRepo, tokenSvc).RegisterRoutes(router.Group("/auth"))

	authMW := auth.AuthMiddleware(tokenSvc, authRepo)

	// Reviews: listing public, submission protected.
	reviewsRepo := reviews.NewRepo(db)
	reviews.NewHandler(reviewsRepo, booksRepo).RegisterRoutes(booksGroup, authMW)

	// Protected user area
	protected := router.Group("/users")
	protected.Use(authMW)

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
			"email":    claims.Email,
		})
	})

	bookmarksRepo := bookmarks.NewRepo(db)
	bookmarks.NewHandler(bookmarksRepo, hub).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// The notify listener has no shutdown hook; it exits with the process.
	go func() {
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", cfg.HTTPAddr)
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

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
