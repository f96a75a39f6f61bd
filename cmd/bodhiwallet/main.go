package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/backend"
	"github.com/jask/bodhiwallet/internal/config"
	"github.com/jask/bodhiwallet/internal/dashboard"
	"github.com/jask/bodhiwallet/internal/database"
	"github.com/jask/bodhiwallet/internal/database/repository"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
	"github.com/jask/bodhiwallet/internal/service"
	"github.com/jask/bodhiwallet/internal/state"
	"github.com/jask/bodhiwallet/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewLoggerFromConfig(logging.Config{
		Environment: cfg.Log.Environment,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.AtExit()

	if wrote, err := config.EnsureFile(cfg); err != nil {
		logger.Warn("write default config", zap.Error(err))
	} else if wrote {
		logger.Info("wrote default config", zap.String("path", config.Path()))
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrationsWithDB(db, cfg.Database.Migrations); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	maintenance := &service.MaintenanceService{DB: db}
	if len(os.Args) > 1 && os.Args[1] == "reset" {
		if err := maintenance.Reset(ctx); err != nil {
			logger.Fatal("reset", zap.Error(err))
		}
		fmt.Println("local snapshots and preferences cleared")
		return
	}

	defaultTab, err := dashboard.ParseTab(cfg.UI.DefaultTab)
	if err != nil {
		logger.Warn("invalid ui.default_tab, using default", zap.String("value", cfg.UI.DefaultTab))
		defaultTab = dashboard.DefaultTab
	}
	sortDir, err := market.ParseSortDirection(cfg.UI.Sort)
	if err != nil {
		logger.Warn("invalid ui.sort, using ascending", zap.String("value", cfg.UI.Sort))
		sortDir = market.Ascending
	}
	if err := database.SeedDefaults(ctx, db, defaultTab.String(), string(sortDir)); err != nil {
		logger.Fatal("seed defaults", zap.Error(err))
	}

	if n, err := maintenance.Prune(ctx, cfg.Database.KeepBlocks); err != nil {
		logger.Warn("prune snapshots", zap.Error(err))
	} else if n > 0 {
		logger.Info("pruned snapshots", zap.Int64("rows", n))
	}

	// repositories
	snapRepo := repository.NewSnapshotRepo(db)
	prefsRepo := repository.NewPrefsRepo(db)

	// backend clients
	gql := backend.NewClient(logger, cfg.Backend.GraphQLURL, cfg.Backend.Timeout, cfg.Backend.Retries)
	wallet := backend.NewWalletAPI(logger, cfg.Backend.APIURL, cfg.Backend.InsightURL, cfg.Backend.Timeout, cfg.Backend.Retries)

	breakpoints := state.Breakpoints{Tablet: cfg.UI.TabletWidth, Desktop: cfg.UI.DesktopWidth}
	store := state.NewStore(logger, state.New(breakpoints, cfg.UI.DesktopWidth, 0))

	prefs := &service.Preferences{Log: logger.Named("prefs"), Prefs: prefsRepo}
	dash, err := prefs.Restore(ctx, store, dashboard.Dashboard{Tab: defaultTab, Sort: sortDir})
	if err != nil {
		logger.Warn("restore preferences", zap.Error(err))
	}
	store.Subscribe(prefs.Listener(ctx))

	syncer := &service.Syncer{
		Log:          logger,
		Store:        store,
		Source:       gql,
		Wallet:       wallet,
		Snapshots:    snapRepo,
		PollInterval: cfg.Sync.PollInterval,
	}
	if cfg.Sync.Subscribe && cfg.Backend.SubscriptionsURL != "" {
		syncer.Stream = backend.NewSubscriber(logger, cfg.Backend.SubscriptionsURL)
	}
	if err := syncer.Restore(ctx); err != nil {
		logger.Warn("restore snapshot", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		logger.Warn("using local timezone", zap.String("timezone", cfg.UI.Timezone), zap.Error(err))
		loc = time.Local
	}

	app := tui.New(ctx,
		tui.Deps{Log: logger.Named("tui"), Store: store, Client: gql, Syncer: syncer, Prefs: prefs},
		tui.Options{Breakpoints: breakpoints, Dashboard: dash, Location: loc},
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	store.Subscribe(tui.Forward(p.Send))

	go func() {
		if err := syncer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("syncer stopped", zap.Error(err))
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Printf("error: %v\n", err)
	}
	stop()
}
