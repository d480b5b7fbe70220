package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	coreapp "overrides/internal/core/app"
	"overrides/internal/engine/model"
	"overrides/internal/shared/observability"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type methodQuery func(a *coreapp.App, ref string, opts coreapp.QueryOptions) (*model.Method, error)

func queryOverridden(a *coreapp.App, ref string, opts coreapp.QueryOptions) (*model.Method, error) {
	return a.Overridden(ref, opts)
}

func queryDeclaring(a *coreapp.App, ref string, opts coreapp.QueryOptions) (*model.Method, error) {
	return a.Declaring(ref, opts)
}

func (rt *runtime) queryOptions() coreapp.QueryOptions {
	return coreapp.QueryOptions{
		TestVisibility: rt.opts.visibility,
		Focus:          model.TypeID(rt.opts.focus),
	}
}

func newIndexCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "index [paths...]",
		Short: "Index Java sources and, with db.enabled, persist the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				rt.cfg.SourcePaths = args
			}
			a, err := rt.newApp()
			if err != nil {
				return err
			}
			report, err := a.Index(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, renderIndexReport(report))
			return nil
		},
	}
}

func newMethodQueryCmd(rt *runtime, name, short string, query methodQuery) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <pkg.Type#method>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			m, err := a.LookupMethod(args[0])
			if err != nil {
				return err
			}
			res, err := query(a, args[0], rt.queryOptions())
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, renderResult(m, res))
			return nil
		},
	}
	addQueryFlags(cmd, rt.opts)
	return cmd
}

func newChainCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <pkg.Type#method>",
		Short: "Print every method a method transitively overrides, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			m, err := a.LookupMethod(args[0])
			if err != nil {
				return err
			}
			chain, err := a.Chain(args[0], rt.queryOptions())
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, renderChain(m, chain))
			return nil
		},
	}
	addQueryFlags(cmd, rt.opts)
	return cmd
}

func newOverridingCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overriding <pkg.Type> <pkg.Super#method>",
		Short: "Print the method declared in a type that overrides the given method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			m, err := a.LookupMethod(args[1])
			if err != nil {
				return err
			}
			res, err := a.Overriding(model.TypeID(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, renderResult(m, res))
			return nil
		},
	}
	addStoredFlag(cmd, rt.opts)
	return cmd
}

func newTypeCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type <pkg.Type>",
		Short: "Print a type's supertypes and declared methods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			info, err := a.LookupType(model.TypeID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, renderType(info))
			return nil
		},
	}
	addStoredFlag(cmd, rt.opts)
	return cmd
}

func newWatchCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Index, then re-index whenever sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, renderStatus(a.Status()))

			addr := rt.cfg.Observability.MetricsAddress
			if rt.opts.metricsAddr != "" {
				addr = rt.opts.metricsAddr
			}
			if addr != "" {
				srv := observability.NewServer(addr, coreapp.NewHealthService(a))
				if err := srv.Start(ctx); err != nil {
					return err
				}
				defer stopServer(srv)
			}

			return a.Watch(ctx, func(report *coreapp.IndexReport, changed []string, err error) {
				if err != nil {
					return
				}
				fmt.Fprint(rt.out, renderIndexReport(report))
			})
		},
	}
	cmd.Flags().StringVar(&rt.opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	return cmd
}

func stopServer(srv *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server", "error", err)
	}
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "overrides v%s\n", versionString)
		},
	}
}
