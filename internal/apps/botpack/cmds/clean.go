package botpack

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/botpack/botpack/internal/dockerclient"
	"github.com/botpack/botpack/internal/logs"
	"github.com/botpack/botpack/internal/state"
	"github.com/botpack/botpack/internal/versioncheck"
	"github.com/spf13/cobra"
)

type cleanOptions struct {
	Images bool
	State  bool
	All    bool
	Yes    bool
}

func newCleanCmd() *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove botpack images and build records",
		Long: `Remove botpack artifacts.

By default, '--all' is implied, which removes built images and the local
build records. Use flags to be more granular.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no specific flags and !All explicitly set, treat as All
			if !opts.Images && !opts.State && !opts.All {
				opts.All = true
			}

			if opts.All {
				opts.Images = true
				opts.State = true
			}

			if !opts.Yes {
				ok, err := logs.PromptConfirm("Remove botpack images and build records?")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

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

			if opts.Images && len(builds) > 0 {
				dockerClient, err := dockerclient.NewDockerClient()
				if err != nil {
					return err
				}

				for _, b := range builds {
					if err := dockerClient.RemoveImage(signalsCtx, b.ImageID); err != nil {
						logs.Warnf("could not remove image %s: %v", b.ImageID, err)
						continue
					}
					logs.Infof("removed image %s", b.Tag)
				}
			}

			if opts.State {
				n, err := store.DeleteAll(signalsCtx)
				if err != nil {
					return err
				}
				logs.Infof("removed %d build records", n)

				if err := versioncheck.ClearCache(signalsCtx); err != nil {
					logs.Debugf("version check cache: %v", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Remove everything (default behavior)")
	cmd.Flags().BoolVar(&opts.Images, "images", false, "Remove images only")
	cmd.Flags().BoolVar(&opts.State, "state", false, "Remove build records only")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
