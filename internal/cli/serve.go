package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gastos/internal/aggregate"
	"gastos/internal/amqp"
	"gastos/internal/cache"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
)

const shutdownTimeout = 30 * time.Second

var errNoChangeFeed = errors.New("watch needs the AMQP change feed; set AMQP_URL")

func (a *app) serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}
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

			srv := apphttp.NewServer(net.JoinHostPort("", port), sess.store,
				apphttp.WithLogger(a.logger),
				apphttp.WithClock(a.now),
				apphttp.WithViewOptions(aggregate.Options{
					TrendMonths: a.cfg.TrendMonths,
					RecentLimit: a.cfg.RecentLimit,
				}))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.InfoContext(gctx, "Starting gastos server",
					"port", port, applog.FieldBackend, a.cfg.DataBackend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown: %w", err)
				}
				a.logger.InfoContext(shutdownCtx, "Server stopped gracefully")
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "8081", "listen port (default from PORT)")
	return cmd
}

// Redelivered change events are recognized by id for this long.
const (
	watchDedupSize = 1024
	watchDedupTTL  = 10 * time.Minute
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print ledger changes from the change feed as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sess, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()
			if sess.backend.Events == nil {
				return errNoChangeFeed
			}

			seen := cache.NewLRUCache[struct{}](watchDedupSize, watchDedupTTL)
			janitor := cache.NewJanitor(a.logger)
			janitor.Register(seen)

			p := &eventPrinter{
				out:  cmd.OutOrStdout(),
				seen: seen,
				balance: func(ctx context.Context) (decimal.Decimal, error) {
					// Another process made the change; reload to see it.
					store, err := a.openLedger(ctx, sess.backend.Store, nil)
					if err != nil {
						return decimal.Zero, err
					}
					return aggregate.CurrentBalance(store.Snapshot()), nil
				},
			}
			printBalance(p.out, aggregate.CurrentBalance(sess.store.Snapshot()))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return janitor.Run(gctx, watchDedupTTL)
			})
			g.Go(func() error {
				defer cancel()
				err := sess.backend.Events.ConsumeEvents(gctx, p.handle)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			return g.Wait()
		},
	}
}

// eventPrinter reports each change event once and the balance after it.
type eventPrinter struct {
	out     io.Writer
	seen    cache.Cache[struct{}]
	balance func(context.Context) (decimal.Decimal, error)
}

func (p *eventPrinter) handle(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if _, dup := p.seen.Get(msg.EventID); dup {
		return nil
	}

	// A failed read is requeued, so the event only counts as seen once printed.
	balance, err := p.balance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, describeEvent(msg))
	printBalance(p.out, balance)
	p.seen.Set(msg.EventID, struct{}{})
	return nil
}

func describeEvent(msg *amqp.LedgerEventMessage) string {
	line := fmt.Sprintf("%s %s %s", msg.Timestamp.UTC().Format(time.DateTime), msg.Op, msg.Kind)
	if msg.RecordID > 0 {
		line += fmt.Sprintf(" #%d", msg.RecordID)
	}
	if !msg.Persisted {
		line += " " + warningStyle.Render("(not saved)")
	}
	return line
}
