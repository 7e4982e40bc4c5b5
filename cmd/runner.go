package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/linesync/internal/repositories"
	"github.com/desertthunder/linesync/internal/services"
	"github.com/desertthunder/linesync/internal/session"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, session, resolver and coordinator are built lazily by [Runner.bootstrap] so that setup commands
// work before a database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader

	db          *sql.DB
	session     *session.Manager
	api         *services.APIService
	resolver    *services.Resolver
	snapshots   *repositories.SnapshotRepository
	coordinator *tasks.Coordinator
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	DB         *sql.DB // optional pre-opened database; migrations still run on bootstrap
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, callsCommand, recordingsCommand, numbersCommand,
		syncCommand, endpointsCommand, serveCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config, applies environment overrides and sets the log level.
// A missing file leaves the defaults in place.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}
	r.config.ApplyEnv()

	level := r.config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// SetLogger replaces the logger used by commands and by components built afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// bootstrap opens the database and wires the session, resolver and coordinator. Safe to call repeatedly.
func (r *Runner) bootstrap(ctx context.Context) error {
	if r.coordinator != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
	}
	if err := shared.RunMigrations(ctx, r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.session = session.NewManager(session.Options{
		TokenURL:     r.config.Identity.TokenURL,
		ClientID:     r.config.Identity.ClientID,
		ClientSecret: r.config.Identity.ClientSecret,
		Scopes:       r.config.Identity.Scopes,
		HTTPClient:   &http.Client{Transport: r.httpClient.Transport, Timeout: r.config.Platform.Timeout()},
		Store:        repositories.NewCredentialRepository(r.db),
		Logger:       r.logger,
	})
	if err := r.session.Restore(ctx); err != nil {
		return err
	}

	r.api = services.NewAPIService(r.config.Platform.BaseURL, r.httpClient,
		services.WithTimeout(r.config.Platform.Timeout()),
		services.WithRateLimit(r.config.Platform.RequestsPerSecond),
		services.WithAPILogger(r.logger),
	)
	r.resolver = services.NewResolver(r.api, r.session, services.WithResolverLogger(r.logger))
	r.snapshots = repositories.NewSnapshotRepository(r.db)
	r.coordinator = tasks.NewCoordinator(tasks.Options{
		Source:    r.resolver,
		Session:   r.session,
		Snapshots: r.snapshots,
		Interval:  r.config.Sync.RefreshInterval(),
		Logger:    r.logger,
	})

	if r.session.IsAuthenticated() || r.session.Credential().CanRefresh() {
		if err := r.coordinator.Restore(ctx); err != nil {
			r.logger.Warn("failed to restore snapshots", "error", err)
		}
	}
	return nil
}

// Close stops background work and closes the database. A later command bootstraps again.
func (r *Runner) Close() error {
	if r.coordinator != nil {
		r.coordinator.Stop()
	}
	r.session, r.api, r.resolver, r.snapshots, r.coordinator = nil, nil, nil, nil, nil

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func (r *Runner) requireAuth() error {
	if !r.session.IsAuthenticated() && !r.session.Credential().CanRefresh() {
		return fmt.Errorf("%w: run 'linesync auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC1123)
}
