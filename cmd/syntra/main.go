package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/natsbus"
	"github.com/rao305/Syntra.ai-sub006/internal/notify"
	"github.com/rao305/Syntra.ai-sub006/internal/pipeline"
	"github.com/rao305/Syntra.ai-sub006/internal/provider"
	"github.com/rao305/Syntra.ai-sub006/internal/registry"
	"github.com/rao305/Syntra.ai-sub006/internal/scheduler"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
	"github.com/rao305/Syntra.ai-sub006/internal/vault"
	"github.com/rao305/Syntra.ai-sub006/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("syntra %s\n", version)
	case "gateway":
		if err := runGateway(); err != nil {
			slog.Error("gateway failed", "error", err)
			os.Exit(1)
		}
	case "vault":
		if err := runVault(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "export":
		if err := runExport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "import":
		if err := runImport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: syntra <command>\n\nCommands:\n  gateway    Start the Syntra orchestration service\n  vault      Manage encrypted provider secrets\n  export     Export run transcripts to a tar.zst archive\n  import     Import run transcripts from a tar.zst archive\n  version    Print version\n")
}

func runGateway() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting syntra gateway", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite store
	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	// Vault and secret references in provider credentials
	var v *vault.Vault
	if cfg.Vault.Passphrase != "" {
		v = vault.New(cfg.Vault.Passphrase)
		if err := resolveProviderSecrets(v, db, cfg); err != nil {
			return fmt.Errorf("resolve provider secrets: %w", err)
		}
	}

	// Embedded NATS
	bus, err := natsbus.New(cfg.NATS)
	if err != nil {
		return fmt.Errorf("init nats: %w", err)
	}
	defer bus.Close()
	slog.Info("nats started", "port", bus.Port())

	nc, err := natsbus.NewClient(bus)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	// Model capability catalog
	reg, err := registry.Load(cfg.Models.CatalogPath)
	if err != nil {
		return fmt.Errorf("load model catalog: %w", err)
	}
	slog.Info("model catalog loaded", "models", reg.Len())

	// Provider callers
	pool := provider.NewPool(cfg.Providers)
	if len(pool.AvailableProviders()) == 0 {
		slog.Warn("no provider credentials configured, all runs will fail routing")
	}

	// Pipeline controller
	ctrl := pipeline.New(cfg, reg, pool, db, nc)
	go ctrl.StartReaper(ctx)

	// Scheduler
	sched := scheduler.New(db, ctrl, nc, cfg.Scheduler)
	go sched.Start(ctx)
	slog.Info("scheduler started")

	// Telegram notifications
	if cfg.Telegram.Token != "" {
		notifier, err := notify.New(cfg.Telegram)
		if err != nil {
			return fmt.Errorf("init telegram notifier: %w", err)
		}
		notifier.Attach(ctrl)
		slog.Info("telegram notifications enabled")
	} else {
		slog.Warn("telegram token not set, notifications disabled")
	}

	// Web API
	if cfg.Web.Enabled {
		srv := web.NewServer(db, bus, ctrl, reg, pool, v, cfg.Web, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()

	return nil
}

// resolveProviderSecrets replaces "secret:name" API key references with
// decrypted values from the store.
func resolveProviderSecrets(v *vault.Vault, db *store.Store, cfg *config.Config) error {
	creds := []*config.ProviderCredentials{
		&cfg.Providers.Anthropic,
		&cfg.Providers.OpenAI,
		&cfg.Providers.Groq,
		&cfg.Providers.XAI,
	}
	for _, c := range creds {
		if c.APIKey == "" {
			continue
		}
		resolved, err := v.ResolveRef(db, c.APIKey)
		if err != nil {
			return err
		}
		c.APIKey = resolved
	}
	return nil
}
