package cli

import (
	"github.com/spf13/cobra"
)

const versionString = "1.0.0"
const defaultConfigPath = "./overrides.toml"

type cliOptions struct {
	configPath string
	verbose    bool

	// query commands
	visibility bool
	focus      string
	stored     bool

	// watch
	metricsAddr string
}

// newRootCmd builds the command tree around rt. The caller closes rt.
func newRootCmd(rt *runtime) *cobra.Command {
	opts, out, errOut := rt.opts, rt.out, rt.errOut

	root := &cobra.Command{
		Use:           "overrides",
		Short:         "Resolve Java method overrides across a type hierarchy",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return rt.setup()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(
		newIndexCmd(rt),
		newMethodQueryCmd(rt, "overridden", "Print the method a method directly overrides", queryOverridden),
		newMethodQueryCmd(rt, "declaring", "Print the top-most method a method overrides", queryDeclaring),
		newChainCmd(rt),
		newOverridingCmd(rt),
		newTypeCmd(rt),
		newWatchCmd(rt),
		newVersionCmd(out),
	)
	return root
}

func addQueryFlags(cmd *cobra.Command, opts *cliOptions) {
	cmd.Flags().BoolVar(&opts.visibility, "visibility", false, "Drop results not visible from the focus type")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "Type the query is issued from (default: the method's own type)")
	addStoredFlag(cmd, opts)
}

func addStoredFlag(cmd *cobra.Command, opts *cliOptions) {
	cmd.Flags().BoolVar(&opts.stored, "stored", false, "Query the latest persisted snapshot instead of re-indexing")
}
