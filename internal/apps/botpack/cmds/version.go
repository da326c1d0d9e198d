package botpack

import (
	"fmt"

	"github.com/botpack/botpack/internal/version"
	"github.com/botpack/botpack/internal/versioncheck"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of botpack",
		Long:  `Display the current version of botpack.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s\n", version.Get())

			versioncheck.PrintUpdateBanner(versioncheck.Check(cmd.Context()))
		},
	}

	return cmd
}
