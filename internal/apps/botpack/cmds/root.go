package botpack

import (
	"context"

	"github.com/botpack/botpack/internal/logs"
	"github.com/spf13/cobra"
)

var verbosity int

func Execute(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:   "botpack [PATH]",
		Short: "Reproducible container images for Python bots",
		Long: `botpack packages a Python bot project into a pinned, cache-friendly
container image.

By default, 'botpack' is equivalent to 'botpack build [PATH]'.
If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		// Default behavior is the same as 'build'
		RunE: buildCmdRunE,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(verbosity)
			return nil
		},
		// we will handle that
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity level")

	// Root should accept the same flags as `build`
	attachBuildCmdFlags(rootCmd)

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.ExecuteContext(ctx)
}
