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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"nascon-platform/internal/broker"
	"nascon-platform/internal/config"
	"nascon-platform/internal/db"
	"nascon-platform/internal/httpapi"
	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
	"nascon-platform/internal/telemetry"
)

func main() {
	app := &cli.App{
		Name:  "nascon",
		Usage: "event management platform for the NASCON convention",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"NASCON_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "nascon:", err)
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the process logger.
func setup(c *cli.Context) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout), nil
}

func connect(ctx context.Context, cfg config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.DB.URL, cfg.DB.MaxConns, cfg.DB.ConnectTimeout, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
			if err != nil {
				return fmt.Errorf("setup tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					log.Warn().Err(err).Msg("tracing shutdown")
				}
			}()

			pool, err := connect(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			var pub broker.Publisher = broker.Nop{}
			if cfg.AMQP.URL != "" {
				rabbit, err := broker.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
				if err != nil {
					return err
				}
				pub = rabbit
			}
			defer pub.Close()

			reg := telemetry.NewRegistry()
			metrics := telemetry.NewMetrics(reg)
			svc := service.New(pool, log, service.WithPublisher(pub), service.WithMetrics(metrics))

			router := httpapi.NewRouter(httpapi.Deps{
				Service:  svc,
				Tokens:   httpapi.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL).WithRefreshTTL(cfg.JWT.RefreshTTL),
				Log:      log,
				Metrics:  metrics,
				Registry: reg,
				Server:   cfg.Server,
				Ping:     pool.Ping,
			})

			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			pool, err := connect(c.Context, cfg, log)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "create the first admin account and a starter venue and room type",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "admin-email", Value: "admin@nascon.local", EnvVars: []string{"NASCON_ADMIN_EMAIL"}},
			&cli.StringFlag{Name: "admin-password", Required: true, EnvVars: []string{"NASCON_ADMIN_PASSWORD"}},
			&cli.StringFlag{Name: "admin-name", Value: "NASCON Admin"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			pool, err := connect(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := service.New(pool, log)
			admin, err := svc.CreateUser(c.Context, model.NewUser{
				Name:     c.String("admin-name"),
				Email:    c.String("admin-email"),
				Password: c.String("admin-password"),
				Role:     model.RoleAdmin,
			})
			if errors.Is(err, service.ErrEmailTaken) {
				log.Info().Str("email", c.String("admin-email")).Msg("admin already exists, nothing to seed")
				return nil
			}
			if err != nil {
				return err
			}

			actor := model.Actor{UserID: admin.ID, Role: model.RoleAdmin}
			venue, err := svc.CreateVenue(c.Context, actor, model.VenueInput{
				Name:       "Main Auditorium",
				Capacity:   500,
				Facilities: "Projector, sound system, stage",
				Location:   "Main Campus",
			})
			if err != nil {
				return err
			}
			acc, err := svc.CreateAccommodation(c.Context, actor, model.AccommodationInput{
				RoomType:      "Shared Hostel Room",
				Capacity:      40,
				PricePerNight: 1500,
			})
			if err != nil {
				return err
			}

			log.Info().
				Int("admin_id", admin.ID).
				Int("venue_id", venue.ID).
				Int("accommodation_id", acc.ID).
				Msg("seeded")
			return nil
		},
	}
}
