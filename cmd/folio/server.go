package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zadiki/folio/internal/api"
	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/config"
	"github.com/zadiki/folio/internal/housekeeping"
	"github.com/zadiki/folio/internal/session"
	"github.com/zadiki/folio/internal/site"
	"github.com/zadiki/folio/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portfolio site and the assistant API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running folio server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "folio.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// localURL is the base URL a CLI on the same host uses to reach the server.
// Wildcard listen hosts are dialed over loopback.
func localURL(cfg config.Config) string {
	host := cfg.Server.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	c := cfg
	c.Server.Host = host
	return "http://" + c.Addr()
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(localURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("folio is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("folio is already running on %s", cfg.Addr())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profileStore, err := loadProfile(cfg)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating completion backend: %w", err)
	}

	var store *storage.Store
	if cfg.Analytics.Enabled {
		store, err = storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
			}
		}()
	}

	adminToken := cfg.Admin.Token
	if adminToken == "" {
		adminToken, err = api.GenerateToken()
		if err != nil {
			return fmt.Errorf("generating admin token: %w", err)
		}
		printStatus("Admin token", "%s (generated for this process)", adminToken)
	}
	salt, err := api.GenerateToken()
	if err != nil {
		return fmt.Errorf("generating visit salt: %w", err)
	}

	sessions := session.NewRegistry(func(id string) *assistant.Widget {
		opts := widgetOptions(cfg)
		if store != nil {
			opts = append(opts, chatRecorder(store, id))
		}
		return assistant.New(completer, profileStore, opts...)
	}, session.Options{
		TTL:         cfg.Assistant.SessionTTL,
		MaxSessions: cfg.Assistant.MaxSessions,
	})

	deps := api.Deps{
		Profile:    profileStore,
		Sessions:   sessions,
		Site:       site.NewRenderer(profileStore, site.Options{ChatEnabled: true}),
		AdminToken: adminToken,
		VisitSalt:  salt[:16],
	}
	tasks := []housekeeping.Task{housekeeping.SweepSessions(sessions)}
	if store != nil {
		deps.Visits = store
		deps.Stats = store
		tasks = append(tasks, housekeeping.PurgeVisits(store, cfg.Analytics.Retention, time.Now))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	worker := housekeeping.NewWorker(time.Minute, tasks...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "folio listening on http://%s\n", cfg.Addr())
		slog.Info("assistant ready",
			"provider", cfg.Assistant.Provider,
			"model", cfg.Assistant.Model,
			"analytics", cfg.Analytics.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func stopServer() error {
	cfg, err := loadConfig()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("folio is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop folio (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to folio (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	c := newAPIClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	running := false
	if err := c.get(ctx, "/health", nil); err != nil {
		printStatus("Server", "stopped")
	} else {
		running = true
		printStatus("Server", "running on %s", cfg.Addr())
	}
	if pid, err := readPIDFile(pidFilePath(cfg.Storage.DataDir)); err == nil {
		printStatus("PID", "%d", pid)
	}

	printStatus("Provider", "%s", cfg.Assistant.Provider)
	printStatus("Model", "%s", cfg.Assistant.Model)
	if cfg.ProviderSettings().APIKey == "" {
		printStatus("API key", "%s", colorize(colorYellow, "not set"))
	} else {
		printStatus("API key", "set")
	}
	printStatus("Analytics", "%s", enabledLabel(cfg.Analytics.Enabled))

	if running && cfg.Admin.Token != "" && cfg.Analytics.Enabled {
		var stats storage.Stats
		if err := c.get(ctx, "/admin/stats", &stats); err == nil {
			printStatus("Visits", "%d (%d unique)", stats.TotalVisits, stats.UniqueVisitors)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
