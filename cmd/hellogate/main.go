// hellogate: gateway de login federado con remember-me persistente.
//
// Subcomandos:
//
//	serve    levanta el servicio HTTP
//	migrate  aplica las migraciones SQL embebidas
//	sweep    purga one-shot de tokens expirados
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellogate/internal/config"
	"github.com/dropDatabas3/hellogate/internal/email"
	httpserver "github.com/dropDatabas3/hellogate/internal/http"
	"github.com/dropDatabas3/hellogate/internal/oauth"
	"github.com/dropDatabas3/hellogate/internal/oauth/github"
	"github.com/dropDatabas3/hellogate/internal/oauth/google"
	"github.com/dropDatabas3/hellogate/internal/observability/logger"
	"github.com/dropDatabas3/hellogate/internal/session"
	"github.com/dropDatabas3/hellogate/internal/store/pg"
	"github.com/dropDatabas3/hellogate/internal/token"
	migrations "github.com/dropDatabas3/hellogate/migrations/postgres"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:     "hellogate",
		Short:   "Gateway de login federado (OAuth) con remember-me",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path a config.yaml (opcional; ENV siempre pisa)")

	root.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		sweepCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	_ = godotenv.Load() // .env opcional, no falla si no existe

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "hellogate",
		Version:     version,
	})
	return cfg, log, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servicio HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// ── Storage (opcional: sin DSN corre degradado) ──
			var (
				st        *pg.Store
				ledger    session.TokenLedger = token.DisabledLedger{}
				sweeper   *token.Ledger
				storePing func(ctx context.Context) error
			)
			if cfg.Storage.DSN != "" {
				st, err = pg.New(ctx, cfg.Storage.DSN, pg.Config{
					MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
					MinConns:        cfg.Storage.Postgres.MaxIdleConns,
					ConnMaxLifetime: cfg.ConnMaxLifetime(),
					OpTimeout:       cfg.StorageOpTimeout(),
				}, log)
				if err != nil {
					return fmt.Errorf("storage init: %w", err)
				}
				defer st.Close()
				storePing = st.Ping

				l := token.NewLedger(st, log,
					token.WithRememberDays(cfg.Remember.Days),
					token.WithMetrics(token.NewMetrics(nil)),
				)
				ledger, sweeper = l, l

				// Bootstrap + sweep inicial solo con conectividad
				// confirmada; si el storage está caído arrancamos
				// igual, con remember-me deshabilitado.
				if err := st.Ping(ctx); err != nil {
					log.Error("storage_unreachable_remember_me_degraded", zap.Error(err))
				} else {
					if err := st.Bootstrap(ctx); err != nil {
						log.Error("schema_bootstrap_failed", zap.Error(err))
					}
					if _, err := l.SweepExpired(ctx); err != nil {
						log.Warn("startup_sweep_failed", zap.Error(err))
					}
				}
			} else {
				log.Warn("no_storage_dsn_remember_me_disabled")
			}

			// ── Sesiones ──
			var sessions session.Store
			if cfg.Sessions.Kind == "redis" {
				client := rdb.NewClient(&rdb.Options{
					Addr: cfg.Sessions.Redis.Addr,
					DB:   cfg.Sessions.Redis.DB,
				})
				defer func() { _ = client.Close() }()
				sessions = session.NewRedisStore(client)
			} else {
				sessions = session.NewMemoryStore()
			}

			bridge := session.NewBridge(sessions, ledger, log,
				session.WithSessionTTL(cfg.SessionTTL()))

			// ── Providers ──
			registry := oauth.NewRegistry()
			if cfg.Providers.Google.ClientID != "" {
				registry.Register(google.New(
					cfg.Providers.Google.ClientID,
					cfg.Providers.Google.ClientSecret,
					cfg.Server.BaseURL+"/login/google/callback",
				))
			}
			if cfg.Providers.GitHub.ClientID != "" {
				registry.Register(github.New(
					cfg.Providers.GitHub.ClientID,
					cfg.Providers.GitHub.ClientSecret,
					cfg.Server.BaseURL+"/login/github/callback",
				))
			}
			log.Info("providers_enabled", zap.Strings("providers", registry.Names()))

			// ── Email (opcional) ──
			var mailer email.Sender
			if cfg.SMTP.Host != "" {
				mailer = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port,
					cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass, log)
			}

			// ── HTTP ──
			metricsHandler := httpserver.RegisterMetrics(httpserver.MetricsConfig{
				PoolStats: st.PoolStats,
			})

			handlers := httpserver.NewHandlers(httpserver.HandlersConfig{
				Bridge:   bridge,
				Registry: registry,
				Signer:   oauth.NewStateSigner([]byte(cfg.State.Secret), cfg.State.Issuer),
				Log:      log,
				Cookies: httpserver.CookieConfig{
					SessionName:  "hg_session",
					RememberName: cfg.Remember.CookieName,
					Secure:       cfg.IsProd(),
				},
				RememberDays: cfg.Remember.Days,
				StorePing:    storePing,
				Mailer:       mailer,
			})

			router := httpserver.NewRouter(handlers, log, metricsHandler)
			server := httpserver.NewServer(cfg.Server.Addr, router, log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Run(gctx) })
			if sweeper != nil {
				g.Go(func() error {
					err := sweeper.RunSweeper(gctx, cfg.SweepInterval())
					if err == context.Canceled {
						return nil
					}
					return err
				})
			}

			if err := g.Wait(); err != nil && err != context.Canceled {
				return err
			}
			log.Info("shutdown_complete")
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.DSN == "" {
				return fmt.Errorf("migrate: STORAGE_DSN is required")
			}

			st, err := pg.New(cmd.Context(), cfg.Storage.DSN, pg.Config{
				MaxConns:  cfg.Storage.Postgres.MaxOpenConns,
				OpTimeout: cfg.StorageOpTimeout(),
			}, log)
			if err != nil {
				return err
			}
			defer st.Close()

			var fsys fs.FS = migrations.FS
			return st.Migrate(cmd.Context(), fsys)
		},
	}
}

func sweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Purga one-shot de remember tokens expirados",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.DSN == "" {
				return fmt.Errorf("sweep: STORAGE_DSN is required")
			}

			st, err := pg.New(cmd.Context(), cfg.Storage.DSN, pg.Config{
				MaxConns:  cfg.Storage.Postgres.MaxOpenConns,
				OpTimeout: cfg.StorageOpTimeout(),
			}, log)
			if err != nil {
				return err
			}
			defer st.Close()

			l := token.NewLedger(st, log, token.WithRememberDays(cfg.Remember.Days))
			n, err := l.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired tokens\n", n)
			return nil
		},
	}
}
