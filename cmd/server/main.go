package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/config"
	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/events"
	"github.com/knowshare/internal/handler"
	"github.com/knowshare/internal/logging"
	"github.com/knowshare/internal/router"
	"github.com/knowshare/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// rootCmd 默认启动 HTTP 服务。
var rootCmd = &cobra.Command{
	Use:           "knowshare",
	Short:         "Knowledge sharing platform API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, the logger and the database shared by every command.
func bootstrap() (config.AppConfig, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return cfg, nil, nil, err
	}
	gdb, err := db.Open(cfg.DatabasePath, db.NewZapLogger(log))
	if err != nil {
		log.Sync()
		return cfg, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, log, gdb, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.ConfigFileUsed != "" {
		log.Info("loaded config file", zap.String("path", cfg.ConfigFileUsed))
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if err := cfg.CheckSecrets(); err != nil {
		log.Error("refusing to start with default token secrets", zap.String("gin_mode", cfg.GinMode))
		return err
	}
	if cfg.UsesDefaultSecrets() {
		log.Warn("using default token secrets, do not expose this instance", zap.String("gin_mode", cfg.GinMode))
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		AccessTTL:     cfg.JWTExpiresIn,
		RefreshSecret: cfg.JWTRefreshSecret,
		RefreshTTL:    cfg.JWTRefreshExpiresIn,
	})
	if err != nil {
		return err
	}

	opts := handler.Options{
		DB:     gdb,
		Tokens: tokens,
		Upload: service.UploadConfig{
			Dir:      cfg.UploadDir,
			URLPath:  cfg.UploadURLPath,
			MaxBytes: cfg.UploadMaxBytes,
		},
		Logger: log,
	}

	// redis 与 rabbitmq 都是可选依赖，连接失败时降级运行
	if cfg.RedisAddr != "" {
		ranker, err := service.NewRedisViewRanker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, view ranking disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer ranker.Close()
			opts.Ranker = ranker
		}
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := events.DialAMQP(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			opts.Events = publisher
		}
	}

	if admin, created, err := service.NewUserService(gdb).EnsureAdmin(cfg.SuperRootUserName, cfg.SuperRootEmail, cfg.SuperRootPassword); err != nil {
		log.Error("bootstrap admin", zap.Error(err))
	} else if created {
		log.Info("created bootstrap admin", zap.String("username", admin.Username))
	}

	api := handler.NewAPI(opts)
	engine := router.SetupRouter(api, router.Config{
		CORSOrigins:   cfg.CORSOrigins,
		UploadURLPath: cfg.UploadURLPath,
	}, log)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
