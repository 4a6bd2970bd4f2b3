// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, database opening, and repository selection
// to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/cache"
	"github.com/lherron/syncp/internal/client"
	"github.com/lherron/syncp/internal/config"
	"github.com/lherron/syncp/internal/db"
	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/logging"
	"github.com/lherron/syncp/internal/manifest"
	"github.com/lherron/syncp/internal/store"
	"github.com/lherron/syncp/internal/treecopy"
)

// Repository is what commands copy through. Both the local store and the
// syncpd client implement it.
type Repository interface {
	treecopy.Repository
	manifest.Seeder
	manifest.ACLSeeder
}

var (
	_ Repository = (*store.Store)(nil)
	_ Repository = (*client.Client)(nil)
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the local database. It always holds the copy journal and the
	// file cache, and the repository too unless an endpoint is configured.
	DB *db.DB

	// Log writes diagnostics to the command's stderr
	Log *zap.Logger

	// Principal is the identity commands act as
	Principal string

	// Repo is the local store or the syncpd client
	Repo Repository

	Journal *events.Journal
	Cache   *cache.Cache
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

// Copier builds a copy engine over the app's repository. Outcomes are
// printed to out and recorded in the journal.
func (a *App) Copier(out io.Writer) *treecopy.Copier {
	reporters := treecopy.Reporters{
		treecopy.JournalReporter{Journal: a.Journal, Log: a.Log},
	}
	if out != nil {
		reporters = append(treecopy.Reporters{treecopy.WriterReporter{W: out}}, reporters...)
	}
	return treecopy.New(a.Repo, treecopy.Config{
		MaxFileHandlesPerCopy: a.Config.MaxFileHandlesPerCopy,
		Reporter:              reporters,
		Cache:                 a.Cache,
		Logger:                a.Log,
	})
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the local database.
	// Defaults to true.
	NeedsDB bool

	// NeedsRepo indicates whether to connect the repository.
	// Requires NeedsDB to also be true.
	NeedsRepo bool
}

// DefaultOptions returns default options (DB required, no repository).
func DefaultOptions() Options {
	return Options{
		NeedsDB:   true,
		NeedsRepo: false,
	}
}

// WithRepo returns options that require both DB and repository.
func WithRepo() Options {
	return Options{
		NeedsDB:   true,
		NeedsRepo: true,
	}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	app.Config = cfg

	app.Log, err = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	app.Principal = cfg.Principal
	if asFlag := cmd.Flag("as"); asFlag != nil && asFlag.Value.String() != "" {
		app.Principal = asFlag.Value.String()
	}
	if app.Principal == "" {
		app.Principal = store.DefaultPrincipal
	}

	if opts.NeedsDB {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.RequiresMigrationError(); err != nil {
			database.Close()
			return nil, err
		}
		app.DB = database
		app.Journal = events.NewJournal(database.DB, app.Principal)
		app.Cache = cache.New(database.DB)
	}

	if opts.NeedsRepo {
		if app.DB == nil {
			app.Close()
			return nil, fmt.Errorf("repository requires database (set NeedsDB: true)")
		}
		if cfg.UseRemote() {
			c, err := client.New(client.Options{
				Endpoint:  cfg.Endpoint,
				Token:     cfg.Token,
				Principal: app.Principal,
				Log:       app.Log,
			})
			if err != nil {
				app.Close()
				return nil, err
			}
			app.Repo = c
		} else {
			app.Repo = store.New(app.DB).As(app.Principal)
		}
	}

	return app, nil
}

// applyFlags lets persistent flags override loaded configuration
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"db", &cfg.DBPath},
		{"endpoint", &cfg.Endpoint},
		{"token", &cfg.Token},
		{"log-level", &cfg.LogLevel},
		{"output", &cfg.Output},
	}
	for _, o := range overrides {
		if f := cmd.Flag(o.flag); f != nil {
			if v := f.Value.String(); v != "" {
				*o.dst = v
			}
		}
	}
}
