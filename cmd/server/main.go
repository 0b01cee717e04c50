package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kythia/questapi/config"
	"github.com/kythia/questapi/internal/api"
	"github.com/kythia/questapi/internal/api/handlers"
	"github.com/kythia/questapi/internal/core/auth"
	"github.com/kythia/questapi/internal/core/catalog"
	"github.com/kythia/questapi/internal/core/quest"
	"github.com/kythia/questapi/internal/core/validation"
	"github.com/kythia/questapi/internal/logging"
	"github.com/kythia/questapi/internal/provider/discord"
	"github.com/kythia/questapi/internal/storage/postgres"
)

var runMigrations bool

var rootCmd = &cobra.Command{
	Use:           "questapi",
	Short:         "Mirror of the Discord quest catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func registerCommands() {
	rootCmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply migrations before serving")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	serve.Flags().BoolVar(&runMigrations, "migrate", false, "apply migrations before serving")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(syncCmd())
}

// app holds the wired service graph shared by every command.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *postgres.Client
	store       *quest.Repository
	gate        *catalog.Gate
	authService *auth.Service
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log)

	db, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	validator, err := validation.NewValidator()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := quest.NewRepository(db)
	provider := discord.NewClient(discord.ClientOptions{
		BaseURL: cfg.Provider.BaseURL,
		Token:   cfg.Provider.Token,
		Timeout: cfg.Provider.Timeout,
		Locale:  cfg.Provider.Locale,
	})
	syncer := catalog.NewSyncer(store, provider, validator, logger, cfg.Cache.QuestAgeDays)

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		store:       store,
		gate:        catalog.NewGate(store, syncer, cfg.Cache.DurationMS(), logger),
		authService: auth.NewService(&cfg.JWT, &cfg.Admin),
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.db.Close()

	ctx := cmd.Context()
	if runMigrations || a.cfg.Server.RunMigrations {
		applied, err := postgres.Migrate(ctx, a.db)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		a.logger.Info("migrations applied", "count", applied)
	}

	if result, err := a.gate.Refresh(ctx); err != nil {
		a.logger.Warn("initial quest sync failed", "error", err)
	} else {
		a.logger.Info("initial quest sync complete", "new", result.NewCount, "run_id", result.RunID.String())
	}

	router := api.NewRouter(
		a.authService,
		handlers.NewAuthHandler(a.authService),
		handlers.NewQuestHandler(a.gate, quest.NewService(a.store)),
		a.logger,
	)
	engine := router.Setup(a.cfg.Server.Mode)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("starting server", "port", a.cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.db.Close()

			applied, err := postgres.Migrate(cmd.Context(), a.db)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and print the served catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.db.Close()

			result, err := a.gate.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := quest.DecodeResponse(result.Document)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Quest", "Game", "Starts", "Expires", "Tasks", "Rewards"})
			for _, q := range resp.Quests {
				tasks := 0
				if q.Config.TaskConfigV2 != nil {
					tasks = len(q.Config.TaskConfigV2.Tasks)
				}
				tw.AppendRow(table.Row{
					q.ID,
					q.Config.Messages.QuestName,
					q.Config.Messages.GameTitle,
					q.Config.StartsAt,
					q.Config.ExpiresAt,
					tasks,
					len(q.Config.RewardsConfig.Rewards),
				})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "", "new", result.NewCount})
			tw.Render()
			fmt.Printf("run %s: %d new, %d skipped, %d served\n", result.RunID, result.NewCount, result.Skipped, len(resp.Quests))
			return nil
		},
	}
}
