package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harrierhub/hareline/internal/adapter"
	"github.com/harrierhub/hareline/internal/config"
	"github.com/harrierhub/hareline/internal/detect"
	"github.com/harrierhub/hareline/internal/pipeline"
	"github.com/harrierhub/hareline/internal/resolver"
	"github.com/harrierhub/hareline/internal/store"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig   string
	flagDataDir  string
	flagFormat   string
	flagLogLevel string

	flagDays  int
	flagForce bool
	flagLimit int
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hareline",
		Short: "Scrape hash kennel run schedules into a canonical event set",
		Long: `hareline ingests hash kennel run schedules from heterogeneous
sources (registry APIs, spreadsheets, calendars, feeds, event pages),
reconciles them into one canonical event per kennel and date, and tracks
per-source scrape health.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (overrides config)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides config)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newRunDueCmd())
	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newAlertsCmd())

	return cmd
}

// env is everything a subcommand needs once configuration is resolved.
type env struct {
	cfg    config.Config
	store  *store.FileStore
	log    zerolog.Logger
	format OutputFormat
}

func setup() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	fs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return &env{cfg: cfg, store: fs, log: log, format: format}, nil
}

func (e *env) orchestrator() *pipeline.Orchestrator {
	deps := adapter.Deps{
		Client: &http.Client{Timeout: e.cfg.HTTPTimeout},
		Log:    e.log,
	}
	return pipeline.New(e.store, deps, nil, e.log)
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <source-id>",
		Short: "Scrape one source now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			outcome, err := e.orchestrator().ScrapeSource(cmd.Context(), args[0], pipeline.Options{
				Days:  flagDays,
				Force: flagForce,
			})
			if err != nil {
				return err
			}
			return writeOutcome(os.Stdout, e.format, outcome)
		},
	}
	cmd.Flags().IntVar(&flagDays, "days", 0, "Scrape window in days (0 = source default)")
	cmd.Flags().BoolVar(&flagForce, "force", false, "Clear the source's events and rebuild from scratch")
	return cmd
}

func newRunDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-due",
		Short: "Scrape every source whose schedule makes it due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			batch, err := e.orchestrator().RunDue(cmd.Context(), pipeline.Options{})
			if err != nil {
				return err
			}
			return writeBatch(os.Stdout, e.format, batch)
		},
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <url>",
		Short: "Detect the source kind behind a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := detect.Detect(args[0])
			if !ok {
				return fmt.Errorf("no known source kind matches %s", args[0])
			}
			return writeDetection(os.Stdout, OutputFormat(strings.ToLower(flagFormat)), args[0], res)
		},
	}
}

func newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <tag>",
		Short: "Suggest registered kennels for an unmatched tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			groups, err := e.store.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			matches := resolver.New(groups).Suggest(args[0], flagLimit)
			return writeSuggestions(os.Stdout, e.format, args[0], matches)
		},
	}
	cmd.Flags().IntVar(&flagLimit, "limit", 5, "Maximum suggestions to return")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources and their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			sources, err := e.store.ListSources(cmd.Context())
			if err != nil {
				return err
			}
			return writeSources(os.Stdout, e.format, sources)
		},
	}
}

func newAlertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List open alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			alerts, err := e.store.OpenAlerts(cmd.Context())
			if err != nil {
				return err
			}
			return writeAlerts(os.Stdout, e.format, alerts)
		},
	}
}
