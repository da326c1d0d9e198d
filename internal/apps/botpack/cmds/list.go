package botpack

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/botpack/botpack/internal/logs"
	"github.com/botpack/botpack/internal/state"
	"github.com/botpack/botpack/internal/ui"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List built bot images",
		Long:    "List the bot images botpack has built, most recently used first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.Debugf("running list...")

			signalsCtx, stopSignalsCtx := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			store, err := state.DefaultBuildStore(signalsCtx)
			if err != nil {
				return err
			}

			builds, err := store.List(signalsCtx)
			if err != nil {
				return err
			}

			if len(builds) == 0 {
				fmt.Println("No images built yet")
				return nil
			}

			columns := []ui.Column{
				{Header: "Project", MaxWidth: 40},
				{Header: "Base"},
				{Header: "Entrypoint"},
				{Header: "Tag", MaxWidth: 32},
				{Header: "Last used"},
			}

			table := ui.NewTable(columns...)

			for _, b := range builds {
				table.AddRow(b.Project, b.BaseImage, b.Entrypoint, b.Tag, b.LastUsed.Format("2006-01-02 15:04"))
			}

			fmt.Println("")
			table.Render(os.Stdout)
			fmt.Println("")
			fmt.Println("Use 'botpack run [PATH]' to start a bot or 'botpack clean' to remove images")

			return nil
		},
	}

	return cmd
}
