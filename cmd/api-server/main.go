package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"artdiscover/internal/auth"
	"artdiscover/internal/bans"
	"artdiscover/internal/catalog"
	"artdiscover/internal/discover"
	"artdiscover/internal/journal"
	synchub "artdiscover/internal/sync"
	"artdiscover/internal/web"
	"artdiscover/pkg/database"
	"artdiscover/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig("")
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("servers stopped")
}

func run(ctx context.Context, cfg utils.Config, log *zap.Logger) error {
	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	journalRepo := journal.NewRepo(db)
	client := catalog.FromConfig(cfg, journalRepo, log)

	hub := synchub.NewHub()
	guard := bans.GuardCultureOnly
	if cfg.Bans.GuardAllSentinels {
		guard = bans.GuardAllPlaceholders
	}
	sessions := discover.NewManager(client, discover.Options{
		Guard:        guard,
		FetchTimeout: utils.Duration(cfg.Catalog.FetchTimeout, discover.DefaultFetchTimeout),
		Logger:       log.Named("discover"),
		OnChange: func(st discover.State) {
			hub.Publish(st.SessionID, synchub.NewStateEvent(st))
		},
	})
	sessions.MaxSessions = cfg.Session.MaxSessions
	sessions.OnRemove = hub.CloseSession
	defer sessions.Close()

	sessionTTL := utils.Duration(cfg.Session.TTL, discover.DefaultSessionTTL)
	tokens := auth.TokenService{
		Secret:   []byte(cfg.Session.Secret),
		Issuer:   "artdiscover",
		Duration: sessionTTL,
	}

	router := newRouter(cfg, db, hub, sessions, tokens, journalRepo, log)
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP API server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("catalog", cfg.Catalog.BaseURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx, sessionTTL, utils.Duration(cfg.Session.SweepInterval, discover.DefaultSweepInterval))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(
	cfg utils.Config,
	db *sql.DB,
	hub *synchub.Hub,
	sessions *discover.Manager,
	tokens auth.TokenService,
	journalRepo *journal.Repo,
	log *zap.Logger,
) *gin.Engine {
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.SetHTMLTemplate(web.Templates())

	if len(cfg.HTTP.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Database.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.Clients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.Clients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"db":       cfg.Database.Path,
			"sessions": sessions.Len(),
			"hub":      hub.Stats(),
		})
	})

	// everything below belongs to the caller's discovery session
	sess := router.Group("/")
	sess.Use(auth.SessionMiddleware(tokens, sessions, log.Named("auth")), web.SanitizeInput())
	web.NewHandler(log.Named("web")).RegisterRoutes(sess)
	journal.NewHandler(journalRepo).RegisterRoutes(sess.Group("/journal"))
	sess.GET("/ws", synchub.WSHandler(hub, synchub.NewUpgrader(cfg.HTTP.CORSOrigins), log.Named("ws")))

	return router
}
