package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/zadiki/folio/internal/api"
	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/config"
	"github.com/zadiki/folio/internal/profile"
	"github.com/zadiki/folio/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the career assistant one question",
	Long: `Ask the career assistant one question and print its reply.

Examples:
  folio ask "Where is Zadiki based?"
  folio ask --remote "What does he do with Flutter?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		if strings.TrimSpace(question) == "" {
			return errors.New("question must not be empty")
		}
		remote, _ := cmd.Flags().GetBool("remote")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		var reply string
		if remote {
			reply, err = askRemote(cmd.Context(), newAPIClient(cfg), question)
		} else {
			var w *assistant.Widget
			w, err = newLocalWidget(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			reply, err = askLocal(cmd.Context(), w, question)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("remote", false, "ask through a running folio server instead of calling the provider directly")
}

// newLocalWidget builds a widget outside the server. Greeting controls
// whether the transcript starts with the configured greeting.
func newLocalWidget(ctx context.Context, cfg config.Config, greeting bool) (*assistant.Widget, error) {
	store, err := loadProfile(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	c, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating completion backend: %w", err)
	}
	opts := []assistant.Option{assistant.WithModel(cfg.Assistant.Model)}
	if greeting {
		opts = widgetOptions(cfg)
	}
	return assistant.New(c, store, opts...), nil
}

func askLocal(ctx context.Context, w *assistant.Widget, question string) (string, error) {
	res, err := w.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	if !res.Dispatched {
		return "", errors.New("question must not be empty")
	}
	return res.Reply.Text, nil
}

// askRemote runs one question through a throwaway server session.
func askRemote(ctx context.Context, c *apiClient, question string) (string, error) {
	var created api.SessionState
	if err := c.post(ctx, "/api/assistant/sessions", nil, &created); err != nil {
		return "", err
	}
	defer func() {
		if err := c.delete(context.WithoutCancel(ctx), "/api/assistant/sessions/"+created.ID); err != nil {
			slog.Debug("closing remote session failed", "session", created.ID, "error", err)
		}
	}()

	var state api.SessionState
	body := api.TextRequest{Text: &question}
	if err := c.post(ctx, "/api/assistant/sessions/"+created.ID+"/submit", body, &state); err != nil {
		return "", err
	}
	n := len(state.Transcript)
	if n == 0 || state.Transcript[n-1].Role != assistant.RoleAssistant {
		return "", errors.New("server returned no assistant reply")
	}
	return state.Transcript[n-1].Text, nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the career assistant in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := newLocalWidget(ctx, cfg, true)
		if err != nil {
			return err
		}
		return runChat(ctx, w, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat reads one question per line until EOF or /quit.
func runChat(ctx context.Context, w *assistant.Widget, in io.Reader, out io.Writer) error {
	for _, t := range w.Snapshot().Transcript {
		printTurn(out, t)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		w.UpdateDraft(line)
		res, err := w.Submit(ctx)
		if err != nil {
			return err
		}
		if res.Dispatched {
			printTurn(out, res.Reply)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printTurn(out io.Writer, t assistant.Turn) {
	label := "you"
	color := colorBold
	if t.Role == assistant.RoleAssistant {
		label = "assistant"
		color = colorCyan
	}
	fmt.Fprintf(out, "%s %s\n", colorize(color, label+">"), t.Text)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the profile and assistant over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := loadProfile(cfg)
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		c, err := newCompleter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("creating completion backend: %w", err)
		}

		srv := api.NewMCPServer(api.MCPDeps{
			Profile: store,
			NewWidget: func() *assistant.Widget {
				return assistant.New(c, store, assistant.WithModel(cfg.Assistant.Model))
			},
			Version: version,
		})
		slog.Info("MCP server started (stdio transport)")
		err = server.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect the profile record",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile as JSON",
	Long: `Show the profile as JSON.

With --section, print only one of: experience, skills, achievements, education.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		section, _ := cmd.Flags().GetString("section")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := loadProfile(cfg)
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		return printProfile(cmd.OutOrStdout(), store, section)
	},
}

func init() {
	profileShowCmd.Flags().String("section", "", "print a single section")
	profileCmd.AddCommand(profileShowCmd)
}

func printProfile(out io.Writer, store *profile.Store, section string) error {
	var v any = store.Profile()
	if section != "" {
		s, err := store.Section(section)
		if err != nil {
			return err
		}
		v = s
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show visit and chat analytics from a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Admin.Token == "" {
			return errors.New("admin.token is not configured; set it with: folio config set-secret admin.token <token>")
		}

		var stats storage.Stats
		if err := newAPIClient(cfg).get(cmd.Context(), "/admin/stats", &stats); err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func printStats(out io.Writer, s storage.Stats) {
	line := func(label, format string, args ...any) {
		fmt.Fprintf(out, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
	}
	line("Visits", "%d", s.TotalVisits)
	line("Unique visitors", "%d", s.UniqueVisitors)
	line("Last 24h", "%d", s.VisitsLastDay)
	line("Last 7d", "%d", s.VisitsLastWeek)
	for _, p := range s.TopPaths {
		line("  "+p.Path, "%d", p.Count)
	}

	outcomes := make([]string, 0, len(s.ChatOutcomes))
	for k := range s.ChatOutcomes {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)
	for _, k := range outcomes {
		line("Chats "+k, "%d", s.ChatOutcomes[k])
	}
	line("Avg reply time", "%s", time.Duration(s.AvgChatMS*float64(time.Millisecond)).Round(time.Millisecond))
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printConfig(cmd.OutOrStdout(), config.ShowAll(cfg))
		return nil
	},
}

func printConfig(out io.Writer, keys []config.KeyInfo) {
	for _, k := range keys {
		fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret in the secrets file",
	Long:  "Store a secret in the secrets file. Secret keys: " + strings.Join(config.SecretKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetSecret(key, value); err != nil {
			return err
		}

		printSuccess("Stored %s in %s", key, config.SecretsFilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
