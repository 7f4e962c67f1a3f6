package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"relbox/config"
	"relbox/database"
	"relbox/handlers"
	"relbox/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.Cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.CreateTables(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.New(store.NewSQLStore(db, cfg.DBDriver), []byte(cfg.JWTSecret), cfg.JWTTTL)
	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handlers.NewRouter(h, cfg.AllowedOrigins),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{
			"addr":   cfg.ServerAddr,
			"driver": cfg.DBDriver,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logrus.Info("Server stopped")
	return nil
}
