package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"global-menu/internal/app"
	"global-menu/internal/ipc"
	"global-menu/internal/menu"
	"global-menu/internal/storage"
	"global-menu/internal/wm"
	"global-menu/pkg/config"
	"global-menu/pkg/global"
	"global-menu/pkg/logger"
)

const (
	version = "0.1.0"

	historyRetention = 7 * 24 * time.Hour
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use:               "global-menu",
		Short:             "Track the active Wayland toplevel and the menu it exports",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log := global.GetLogger(); log != nil {
				log.Debug("end")
				log.Close()
			}
		},
	}

	Run = &cobra.Command{
		Use:   "run",
		Short: "Follow the active toplevel and serve queries",
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	Query = &cobra.Command{
		Use:       "query [active|list|status|history]",
		Short:     "Ask a running daemon",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{ipc.CommandActive, ipc.CommandList, ipc.CommandStatus, ipc.CommandHistory},
		RunE:      query,
	}

	ConfigPath   string
	Debug        bool
	HistoryLimit int
)

func init() {
	Root.AddCommand(Run)
	Root.AddCommand(Query)

	Root.PersistentFlags().StringVar(&ConfigPath, "config", "", "path to config file")
	Root.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")
	Query.Flags().IntVar(&HistoryLimit, "limit", 0, "number of history entries to show")
}

// setup loads the configuration and installs the globals. Only the daemon
// logs to a file.
func setup(cmd *cobra.Command, args []string) error {
	logLevel := zerolog.InfoLevel
	if Debug {
		logLevel = zerolog.DebugLevel
	}

	// Initialize logger first for early logging
	early, err := logger.NewLogger(
		logger.WithConsole(),
		logger.WithLevel(logLevel),
	)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	early.Debug("Loading configuration", "provided_path", ConfigPath)
	cfg, err := config.FindConfig(ConfigPath, early)
	if err != nil {
		early.Error("Failed to load configuration", err, "provided_path", ConfigPath)
		early.Close()
		return err
	}

	log := early
	if cmd == Run {
		log, err = logger.NewLogger(
			logger.WithConsole(),
			logger.WithFile(cfg.GetLogFile()),
			logger.WithLevel(logLevel),
		)
		early.Close()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
	}

	global.InitGlobals(cfg, log)
	log.Debug("Global instances initialized successfully",
		"config_path", cfg.Path(),
		"log_level", logLevel.String())
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, log, notifier := global.GetAll()

	log.Info("Starting Global Menu",
		"version", version,
		"pid", os.Getpid(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"debug", Debug)

	manager, err := wm.Create(cfg.GetDisplay(), log)
	if err != nil {
		switch {
		case errors.Is(err, wm.ErrNoDisplay):
			log.Error("Cannot create toplevel manager", err, "display", cfg.GetDisplay())
		case errors.Is(err, wm.ErrUnsupported):
			log.Error("Compositor lacks foreign toplevel management", err)
		}
		return err
	}

	opts := app.Options{
		Log:     log,
		SelfID:  cfg.GetSelfID(),
		Display: cfg.GetDisplay(),
	}

	if cfg.CheckBus() || cfg.NotifyEnabled() {
		bus, err := menu.ConnectSessionBus()
		if err != nil {
			log.Warn("Session bus unavailable, menu checks disabled", "error", err.Error())
		} else {
			defer bus.Close()
			if cfg.CheckBus() {
				opts.Checker = menu.NewBusChecker(bus, log)
			}
			if cfg.NotifyEnabled() {
				notifier.UseSessionBus(bus.Conn())
			}
		}
	}
	if cfg.NotifyEnabled() {
		opts.Notifier = notifier
	}

	if cfg.HistoryEnabled() {
		db, err := storage.Open(cfg.GetHistoryPath(), log)
		if err != nil {
			log.Warn("History disabled", "error", err.Error())
		} else {
			defer db.Close()
			if err := db.Cleanup(historyRetention); err != nil {
				log.Error("Failed to clean up history", err)
			}
			opts.History = db
		}
	}

	g := app.New(manager, opts)

	srv, err := ipc.Listen(cfg.GetSocketPath(), g, log)
	if err != nil {
		manager.Close()
		return fmt.Errorf("start ipc server: %w", err)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Error("Socket server stopped", err)
		}
	}()
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := cfg.Path(); path != "" {
		watcher, err := config.NewWatcher(path, log)
		if err != nil {
			log.Warn("Configuration changes need a restart", "error", err.Error())
		} else {
			defer watcher.Close()
			go func() {
				err := watcher.Run(ctx, func(next *config.Config) {
					if err := g.SetSelfID(next.GetSelfID()); err != nil {
						log.Error("Failed to apply self id", err)
					}
				})
				if err != nil {
					log.Error("Config watcher stopped", err)
				}
			}()
		}
	}

	log.Info("Starting application", "socket", srv.Path())
	return g.Run(ctx)
}

func query(cmd *cobra.Command, args []string) error {
	cfg, log, _ := global.GetAll()

	resp, err := ipc.Send(cfg.GetSocketPath(), ipc.Request{Command: args[0], Limit: HistoryLimit}, log)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if resp.Status == ipc.StatusError {
		return errors.New(resp.Message)
	}
	return nil
}
