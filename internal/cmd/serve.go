package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Mikepicker/mailslot/internal/config"
	"github.com/Mikepicker/mailslot/internal/dispatch"
	"github.com/Mikepicker/mailslot/internal/event"
	"github.com/Mikepicker/mailslot/internal/logging"
	"github.com/Mikepicker/mailslot/internal/mailslot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mailslot server",
	Long: `Run the mailslot server: allocate the configured registry of
mailslots and accept clients on the configured TCP address until
interrupted. Registry sizing is fixed for the life of the process;
the logging level follows config file changes without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides server.listen)")
	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", config.ValidationErrors(errs))
	}

	log, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Close() }()

	bus := event.NewBus()
	// Rejected pushes are the one registry outcome worth surfacing above
	// debug level: a persistently full mailslot means its consumer is gone.
	bus.Subscribe("message.rejected", func(e event.Event) {
		if ev, ok := e.(event.PushRejectedEvent); ok {
			log.WithComponent("registry").Warn("push rejected",
				"mailslot", ev.Index, "size", ev.Size, "reason", ev.Reason)
		}
	})

	registry := mailslot.NewRegistry(
		mailslot.WithSizing(cfg.Registry.Instances, cfg.Registry.Capacity, cfg.Registry.MessageSize),
		mailslot.WithPopOrder(mailslot.PopOrder(strings.ToLower(cfg.Registry.PopOrder))),
		mailslot.WithBus(bus),
		mailslot.WithLogger(log),
	)

	server := dispatch.NewServer(registry, dispatch.Config{
		Listen:      cfg.Server.Listen,
		MaxConns:    cfg.Server.MaxConns,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}, log)

	// Follow config file edits while running. Only the log level is safe
	// to apply live; sizing and listen address changes need a restart.
	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloaded, err := config.Load()
			if err != nil {
				log.Warn("config reload failed", "file", e.Name, "error", err.Error())
				return
			}
			if errs := reloaded.Validate(); len(errs) > 0 {
				log.Warn("config reload rejected", "file", e.Name,
					"error", config.ValidationErrors(errs).Error())
				return
			}
			log.SetLevel(reloaded.Logging.Level)
			log.Info("config reloaded", "file", e.Name, "log_level", reloaded.Logging.Level)
		})
		viper.WatchConfig()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting mailslot server",
		"listen", cfg.Server.Listen,
		"instances", cfg.Registry.Instances,
		"capacity", cfg.Registry.Capacity,
		"message_size", cfg.Registry.MessageSize,
		"pop_order", cfg.Registry.PopOrder)

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	stats := registry.Stats()
	log.Info("mailslot server shut down",
		"open_count", stats.OpenCount, "stored_messages", stats.Messages)
	return nil
}
