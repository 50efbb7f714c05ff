package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/handlers"
	"github.com/cas-gradtrack/gradtrack/internal/health"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/router"
	"github.com/cas-gradtrack/gradtrack/internal/scheduler"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/storage"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout   = 10 * time.Second
	grpcPingInterval  = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health service and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.L()
	log.Info(cfg.String())

	if err := auth.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
		return err
	}

	services.SetMailer(services.NewMailer(cfg.Mail))
	services.ConfigureWebhooks(cfg.Webhooks)

	publisher, err := services.NewPublisher(cfg.Events)
	if err != nil {
		return err
	}
	services.SetPublisher(publisher)
	defer func() {
		if err := services.ClosePublisher(); err != nil {
			logger.LogError("Failed to close event publisher", err)
		}
	}()

	connector, err := storage.NewConnector(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	handlers.Configure(cfg, connector)
	types.SetAllowedOrigins(cfg.Server.AllowedOrigins)
	gin.SetMode(cfg.Server.Mode)

	opts := router.Options{}
	if local, ok := connector.(*storage.LocalConnector); ok && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		opts.UploadsDir = local.Dir()
		opts.UploadsPath = cfg.Storage.PublicBaseURL
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.NewRouter(opts),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	scheduler.Initialize()
	defer scheduler.Shutdown()

	errCh := make(chan error, 2)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server stopped: %w", err)
		}
	}()

	if cfg.Server.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port %s: %w", cfg.Server.GRPCPort, err)
		}

		grpcServer := health.NewGRPCServer(db.Ping, grpcPingInterval)
		go func() {
			log.WithFields(logrus.Fields{"port": cfg.Server.GRPCPort, "service": health.ServiceName}).Info("gRPC health server listening")
			if err := grpcServer.Serve(ctx, lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	return nil
}
