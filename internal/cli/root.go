// Package cli wires the erd command tree: the dashboard TUI as the root
// command plus scriptable subcommands for keys, models and credits.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/config"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/tabs/catalog"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/tabs/credits"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/tabs/info"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/tabs/keys"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/tabs/signin"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/version"
)

const shutdownTimeout = 2 * time.Second

// ErrMissingCredentials is returned by commands that need a signed-in user
// when EASYROUTER_EMAIL or EASYROUTER_PASSWORD is unset.
var ErrMissingCredentials = errors.New("EASYROUTER_EMAIL and EASYROUTER_PASSWORD must be set")

// runtime holds what a single invocation loads lazily and releases at exit.
type runtime struct {
	cfg         *config.Config
	mgr         *services.Manager
	logs        io.Closer
	envFile     string
	output      string
	managerOpts []services.Option
}

// NewRootCommand builds the erd command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&runtime{})
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "erd",
		Short: "EasyRouter dashboard",
		Long: `erd is a terminal dashboard and CLI for an EasyRouter account.

Run without arguments to open the dashboard. The subcommands sign in with
EASYROUTER_EMAIL and EASYROUTER_PASSWORD and print the result.

Environment Variables:
  EASYROUTER_API_URL          Backend base URL (default: http://localhost:3000)
  EASYROUTER_REQUEST_TIMEOUT  Per-request timeout, 0 disables (default: 0)
  EASYROUTER_EMAIL            Account email for subcommands
  EASYROUTER_PASSWORD         Account password for subcommands
  DATABASE_PATH               SQLite database path
  LOG_PATH                    Log file path
  LOG_LEVEL                   debug, info, warn or error (default: info)
  METRICS_ADDR                Serve prometheus metrics on this address
  NOTIFICATIONS_ENABLED       Desktop notifications on onramp (default: true)

Configuration:
  The first .env file found is loaded from the current directory,
  ~/.config/easyrouter/.env, ~/.easyrouter/.env or a parent directory.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["config"] == "skip" {
				return nil
			}
			return rt.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runTUI(cmd.Context())
		},
	}

	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.PersistentFlags().StringVar(&rt.envFile, "env-file", "", "Load configuration from this .env file")
	root.PersistentFlags().StringVarP(&rt.output, "output", "o", formatTable, "Output format: table, json or yaml")

	root.AddCommand(
		newSignUpCommand(rt),
		newKeysCommand(rt),
		newModelsCommand(rt),
		newCreditsCommand(rt),
		newVersionCommand(),
	)

	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rt := &runtime{}
	defer rt.close()

	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", client.Message(err))
		return 1
	}
	return 0
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "skip"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// load reads configuration and routes logs to the configured file, since
// stdout belongs to the TUI or to command output.
func (rt *runtime) load() error {
	if err := validateFormat(rt.output); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if rt.envFile != "" {
		cfg, err = config.LoadFile(rt.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	rt.cfg = cfg

	logs, err := logger.Setup(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		return err
	}
	rt.logs = logs
	logger.Debug("configuration loaded", "api_url", cfg.APIURL, "env_file", cfg.EnvFile)
	return nil
}

func (rt *runtime) manager() (*services.Manager, error) {
	if rt.mgr != nil {
		return rt.mgr, nil
	}
	mgr, err := services.NewManager(rt.cfg, rt.managerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	rt.mgr = mgr
	return mgr, nil
}

// signedIn returns a manager whose session is authenticated with the
// configured credentials.
func (rt *runtime) signedIn(ctx context.Context) (*services.Manager, error) {
	if rt.cfg.Email == "" || rt.cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	mgr, err := rt.manager()
	if err != nil {
		return nil, err
	}
	if res := mgr.SignIn(ctx, rt.cfg.Email, rt.cfg.Password); !res.OK() {
		return nil, res.Failure
	}
	return mgr, nil
}

func (rt *runtime) close() {
	if rt.mgr != nil {
		if err := rt.mgr.Close(); err != nil {
			logger.Warn("error closing services", "error", err)
		}
	}
	if rt.logs != nil {
		_ = rt.logs.Close()
	}
}

func (rt *runtime) runTUI(ctx context.Context) error {
	mgr, err := rt.manager()
	if err != nil {
		return err
	}

	if rt.cfg.MetricsAddr != "" {
		metrics, err := client.ServeMetrics(rt.cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = metrics.Shutdown(shutdownCtx)
		}()
	}

	if err := mgr.WatchConfig(); err != nil {
		logger.Warn("config watcher disabled", "error", err)
	}

	model := app.NewModel(mgr)
	state := model.GetState()
	model.SetSignIn(signin.New(state, rt.cfg.Email))
	model.SetTabs([]app.Tab{
		keys.New(state),
		catalog.New(state),
		credits.New(state),
		info.New(state, mgr),
	})

	p := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
