package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/config"
	"gastos/internal/core"
	"gastos/internal/ledger"
	applog "gastos/internal/log"
)

var version = "dev"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	now func() time.Time

	backendType string
	dbPath      string
	logLevel    string

	cfg    *config.Config
	logger *applog.Logger
}

// session is an opened ledger plus the backend resources behind it.
type session struct {
	store   *ledger.Store
	backend *backend.BackendResult
}

func (s *session) Close() error { return s.backend.Close() }

// Option customizes the root command.
type Option func(*app)

// WithClock overrides the clock used for default dates and views.
func WithClock(now func() time.Time) Option {
	return func(a *app) {
		if now != nil {
			a.now = now
		}
	}
}

// NewRootCommand builds the gastos command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "gastos",
		Short:         "Personal expense and income ledger",
		Long:          "gastos records expenses and income, tracks category budgets and reports balances and trends.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.backendType, "backend", "", fmt.Sprintf("data backend %v (default from DATA_BACKEND)", backend.GetBackendTypeStrings()))
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path (default from SQLITE_DB_PATH)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")

	root.AddCommand(
		a.expenseCmd(),
		a.incomeCmd(),
		a.balanceCmd(),
		a.summaryCmd(),
		a.trendCmd(),
		a.riskCmd(),
		a.recentCmd(),
		a.initialCmd(),
		a.userCmd(),
		a.budgetCmd(),
		a.clearCmd(),
		a.exportCmd(),
		a.serveCmd(),
		a.watchCmd(),
	)
	return root
}

// Execute runs the root command with ctx and returns its error.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) error {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) init(cmd *cobra.Command) error {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig(func(c *config.Config) {
		if a.backendType != "" {
			c.DataBackend = a.backendType
		}
		if a.dbPath != "" {
			c.SQLiteDBPath = a.dbPath
		}
		if a.logLevel != "" {
			c.LogLevel = a.logLevel
		}
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = SetupLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

// open creates the configured backend and loads the ledger from it.
func (a *app) open(ctx context.Context) (*session, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	store, err := a.openLedger(ctx, res.Store, res.Notifier)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return &session{store: store, backend: res}, nil
}

func (a *app) openLedger(ctx context.Context, kv ledger.KeyValueStore, n ledger.Notifier) (*ledger.Store, error) {
	budgets, err := config.LoadBudgets(a.cfg.BudgetsFile)
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(ctx, kv,
		ledger.WithLogger(a.logger),
		ledger.WithNotifier(n),
		ledger.WithClock(a.now),
		ledger.WithDefaultBudgets(budgets))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

// withLedger opens the ledger, runs fn and closes the backend.
func (a *app) withLedger(cmd *cobra.Command, fn func(ctx context.Context, s *ledger.Store) error) error {
	ctx := cmd.Context()
	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			a.logger.WarnContext(ctx, "Failed to close backend", applog.FieldError, cerr)
		}
	}()
	return fn(ctx, sess.store)
}

// report turns a persistence failure into a warning on stderr; the
// change itself is already applied.
func report(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if core.IsPersistence(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("warning: change applied but not saved: "+err.Error()))
		return nil
	}
	return err
}

func money(d decimal.Decimal) string {
	return core.FormatAmount(d, ".")
}
