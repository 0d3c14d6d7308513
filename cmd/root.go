package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/config"
	"github.com/s0up4200/reelpick/filter"
	"github.com/s0up4200/reelpick/guard"
	"github.com/s0up4200/reelpick/pages"
	"github.com/s0up4200/reelpick/session"
	"github.com/s0up4200/reelpick/ui"
)

var (
	cfgFile   string
	cfg       *config.Config
	logger    zerolog.Logger
	client    *api.Client
	sessions  *session.Store
	persister *session.BadgerPersister
	routes    *guard.Guard
	formatter = ui.NewConsoleFormatter()

	// Command flags
	filterExpr string
	preset     string
	pageCount  int
	loadAll    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reelpick",
	Short: "Browse, watch and rate movies from the recommendation service",
	Long: `reelpick is a terminal client for the movie recommendation service.

Viewers browse the catalog, mark movies as watched, rate them and get
personal recommendations. Admins inspect viewers' watch history and
genre trends.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails
	if closeErr := shutdownApp(rootCmd, nil); closeErr != nil {
		fmt.Fprintln(os.Stderr, "failed to close session store:", closeErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeConfig loads the configuration and sets up the logger
func initializeConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)
	return nil
}

// initializeApp initializes the configuration, the API client and the session
func initializeApp(cmd *cobra.Command, args []string) error {
	if err := initializeConfig(cmd, args); err != nil {
		return err
	}

	var err error
	client, err = api.NewClient(cfg.API.URL, logger,
		api.WithTimeout(cfg.API.Timeout),
		api.WithUserAgent(cfg.API.UserAgent),
		api.WithRatingScale(cfg.API.RatingScale),
	)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	persister, err = session.OpenBadgerPersister(cfg.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	sessions = session.NewStore(client, persister, logger)
	if err := sessions.Restore(cmd.Context()); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	routes = guard.New(sessions)

	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if persister == nil {
		return nil
	}
	err := persister.Close()
	persister = nil
	return err
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// authorize checks route against the signed-in session
func authorize(route string) (*session.Session, error) {
	decision := routes.Check(route)
	switch decision.Outcome {
	case guard.Authorized:
		return sessions.Require()
	case guard.Unauthorized:
		current, _ := sessions.Current()
		return nil, fmt.Errorf("%s is not available to %s accounts (try %s)", route, current.Role, decision.Route)
	default:
		return nil, fmt.Errorf("%w: run 'reelpick login' first", session.ErrNotLoggedIn)
	}
}

func pageOptions() pages.Options {
	return pages.Options{
		MoviesLimit:          cfg.Paging.MoviesLimit,
		RecommendationsLimit: cfg.Paging.RecommendationsLimit,
		HotLimit:             cfg.Paging.HotLimit,
		Logger:               logger,
	}
}

// presetManager returns a filter manager holding the presets from config
func presetManager() (*filter.Manager, error) {
	manager := filter.NewManager()
	if err := manager.RegisterFilters(cfg.Filter.Presets); err != nil {
		return nil, err
	}
	return manager, nil
}

// selectedFilter compiles the --filter expression or the --preset filter.
// It returns nil when neither is set.
func selectedFilter() (filter.Filter, error) {
	// Priority: command line filter > preset
	if filterExpr != "" {
		f, err := filter.NewManager().Compile(filterExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression: %w", err)
		}
		return f, nil
	}

	if preset != "" {
		manager, err := presetManager()
		if err != nil {
			return nil, err
		}
		f, err := manager.GetFilter(preset)
		if err != nil {
			available := manager.ListFilters()
			if len(available) == 0 {
				return nil, fmt.Errorf("preset '%s' not found, config defines no presets: %w", preset, err)
			}
			return nil, fmt.Errorf("preset '%s' not found, available: %s: %w", preset, strings.Join(available, ", "), err)
		}
		return f, nil
	}

	return nil, nil
}

// summarizePresets counts how many subjects each preset matches, one line
// per preset in name order
func summarizePresets(ctx context.Context, manager *filter.Manager, subjects []filter.Subject) (string, error) {
	names := manager.ListFilters()
	if len(names) == 0 {
		return "No presets configured\n", nil
	}

	results, err := manager.EvaluateAll(ctx, subjects)
	if err != nil {
		return "", err
	}

	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Presets over %d movies\n", len(subjects))
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-*s %d\n", width, name, len(results[name]))
	}
	return sb.String(), nil
}

// presetFilters returns every registered preset
func presetFilters(manager *filter.Manager) []filter.Filter {
	var filters []filter.Filter
	for _, name := range manager.ListFilters() {
		if f, err := manager.GetFilter(name); err == nil {
			filters = append(filters, f)
		}
	}
	return filters
}

func parseMovieID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id: %s", arg)
	}
	return id, nil
}

func describeError(err error) string {
	if apiErr, ok := api.AsAPIError(err); ok {
		return apiErr.Message
	}
	var loginErr *session.LoginError
	if errors.As(err, &loginErr) {
		return loginErr.Reason
	}
	return err.Error()
}
