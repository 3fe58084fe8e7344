package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"artdiscover/internal/mirror"
	"artdiscover/pkg/models"
	"artdiscover/pkg/utils"
)

func main() {
	var (
		addr     string
		dataPath string
		apiKey   string
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "mirror-server",
		Short: "Serve a local catalog fixture at GET /object",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if debug {
				level = "debug"
			}
			log, err := utils.NewLogger(utils.LogConfig{Level: level})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			recs := mirror.Default()
			if dataPath != "" {
				if recs, err = mirror.Load(dataPath); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), addr, recs, apiKey, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address")
	cmd.Flags().StringVar(&dataPath, "data", "", "fixture file (defaults to the bundled fixture)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "require this apikey parameter")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every search")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, addr string, recs []models.CatalogRecord, apiKey string, log *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	mirror.NewHandler(recs, apiKey, log).RegisterRoutes(router.Group("/"))

	srv := &http.Server{Addr: addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("mirror-server listening", zap.String("addr", addr), zap.Int("records", len(recs)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
