// Command register 用户注册页面和用户服务
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"katydid-account-register/pkg/auth"
	"katydid-account-register/pkg/client"
	"katydid-account-register/pkg/config"
	_ "katydid-account-register/pkg/docs"
	"katydid-account-register/pkg/idgen"
	"katydid-account-register/pkg/logger"
	"katydid-account-register/pkg/session"
	"katydid-account-register/pkg/users"
	"katydid-account-register/pkg/web"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "register",
		Short:        "User registration form and users service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(configPath, func(cfg *config.Config, log *zap.Logger) error {
					return serve(cmd.Context(), cfg, log)
				})
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the users table",
			RunE: func(_ *cobra.Command, _ []string) error {
				return withApp(configPath, func(cfg *config.Config, log *zap.Logger) error {
					db, err := users.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
					if err != nil {
						return err
					}
					if err := users.Migrate(db); err != nil {
						return err
					}
					log.Info("migration finished", zap.String("driver", cfg.Database.Driver))
					return nil
				})
			},
		},
		tokenCmd(&configPath),
	)
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the users service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			signer, err := auth.NewSigner(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL)
			if err != nil {
				return err
			}
			if subject == "" {
				subject = cfg.Auth.Subject
			}
			token, err := signer.Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (default auth.subject)")
	return cmd
}

func withApp(configPath string, fn func(*config.Config, *zap.Logger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	return fn(cfg, log)
}

func openSessions(cfg config.SessionConfig) (session.Store, func(), error) {
	if cfg.Driver != "redis" {
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closeFn := func() { _ = rdb.Close() }
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	return session.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.TTL), closeFn, nil
}

func openUsers(cfg *config.Config, log *zap.Logger) (*users.Service, *gorm.DB, error) {
	db, err := users.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := users.Migrate(db); err != nil {
			return nil, nil, err
		}
	}
	ids, err := idgen.NewSnowflake(cfg.IDGen.DatacenterID, cfg.IDGen.WorkerID)
	if err != nil {
		return nil, nil, err
	}
	return users.NewService(users.NewGormRepository(db), ids, 0, log.Named("users")), db, nil
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	gin.SetMode(cfg.Server.Mode)

	svc, db, err := openUsers(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	sessions, closeSessions, err := openSessions(cfg.Session)
	if err != nil {
		return err
	}
	defer closeSessions()

	signer, err := auth.NewSigner(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL)
	if err != nil {
		return err
	}

	page, err := web.New(web.Options{
		Users:      client.New(cfg.Service.BaseURL),
		Sessions:   sessions,
		Tokens:     auth.IssuerTokenProvider{Signer: signer, Subject: cfg.Auth.Subject},
		Logger:     log.Named("web"),
		CookieName: cfg.Session.CookieName,
		CookieTTL:  cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
		LockTTL:    cfg.Session.LockTTL,
	})
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(logger.GinMiddleware(log), gin.Recovery())
	users.NewHandler(svc, log.Named("api")).Register(r.Group("/api"), auth.RequireBearer(signer))
	page.Register(r)
	if cfg.Server.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
