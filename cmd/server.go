package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/prayagsingh/bookings/internal/auth"
	"github.com/prayagsingh/bookings/internal/live"
	"github.com/prayagsingh/bookings/internal/migrate"
	"github.com/prayagsingh/bookings/internal/prompt"
	"github.com/prayagsingh/bookings/internal/rooms"
	"github.com/prayagsingh/bookings/internal/web"
)

func newServerCmd() *cobra.Command {
	var (
		migrateUp bool
		demo      bool
		demoUser  string
		sweep     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the bookings site",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password, err := parseDemoUser(demoUser)
			if err != nil {
				return err
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var (
				repo  rooms.Repository
				users auth.Users
			)
			if demo {
				logger.Warn("demo mode: reservations are kept in memory")
				repo = rooms.NewMemoryRepo()
				users = auth.NewMemoryUsers()
			} else {
				d, err := openDB(ctx, cfg)
				if err != nil {
					return err
				}
				defer d.Close()

				if migrateUp {
					if err := migrate.Up(ctx, d, logger); err != nil {
						return err
					}
				}
				repo = rooms.NewPostgresRepo(d)
				users = auth.NewPostgresUsers(d)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			store := auth.NewStore(users, cfg.CookieHashKey, cfg.CookieBlockKey, cfg.InProduction)
			if demo && username != "" {
				if err := seedDemoUser(ctx, store, username, password); err != nil {
					return err
				}
				logger.Warn("demo mode: seeded admin account", "username", username)
			}

			hub := live.NewHub(
				live.WithLogger(logger),
				live.WithRegisterer(reg),
				live.WithPromptOptions(prompt.WithMetrics(prompt.NewMetrics(reg))),
				live.WithCheckOrigin(web.AllowOrigin(cfg.BaseURL)),
			)
			go func() { _ = hub.Run(ctx, sweep) }()

			ws := &web.Server{
				Auth:         store,
				Rooms:        repo,
				Hub:          hub,
				Logger:       logger,
				Gatherer:     reg,
				InProduction: cfg.InProduction,
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logger)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	cmd.Flags().BoolVar(&demo, "demo", false, "serve from an in-memory store instead of postgres")
	cmd.Flags().StringVar(&demoUser, "demo-user", "admin:password", "username:password seeded in demo mode, empty for none")
	cmd.Flags().DurationVar(&sweep, "sweep-interval", 30*time.Second, "how often unclaimed page pop-ups are dropped")
	return cmd
}

// parseDemoUser splits a username:password pair. An empty value seeds nobody.
func parseDemoUser(v string) (string, string, error) {
	if v == "" {
		return "", "", nil
	}
	user, pass, ok := strings.Cut(v, ":")
	user = strings.TrimSpace(user)
	if !ok || user == "" || pass == "" {
		return "", "", fmt.Errorf("--demo-user must be username:password, got %q", v)
	}
	return user, pass, nil
}

func seedDemoUser(ctx context.Context, store *auth.Store, username, password string) error {
	if _, err := store.CreateUser(ctx, username, password); err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}
	return nil
}
