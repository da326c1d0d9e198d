package botpack

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/botpack/botpack/internal/dockerclient"
	"github.com/botpack/botpack/internal/logs"
	"github.com/spf13/cobra"
)

type runOptions struct {
	Envs []string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [PATH]",
		Short: "Build (if needed) and run the bot container",
		Long: `Build the bot image when the cache misses, then run it attached to the
current terminal. Ctrl+C reaches the bot process; SIGTERM stops the container.

If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.Debugf("running bot...")

			buildOpts := getBuildOptions(cmd.Context())
			if buildOpts == nil {
				buildOpts = &buildOptions{}
			}

			pathArg, err := resolvePathArg(args)
			if err != nil {
				return err
			}

			signalsCtx, stopSignalsCtx := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			res, err := resolveImage(signalsCtx, pathArg, buildOpts)
			if err != nil {
				return err
			}

			// The runner installs its own signal handling for the attached
			// terminal session.
			stopSignalsCtx()

			dockerClient, err := dockerclient.NewDockerClient()
			if err != nil {
				return err
			}

			logs.Infof("starting %s (%s)", filepath.Base(res.Build.Project), res.Build.Tag)

			exitCode, err := dockerClient.RunContainer(cmd.Context(), res.Build.ImageID, filepath.Base(res.Build.Project), opts.Envs)
			if err != nil {
				return err
			}
			if exitCode != 0 {
				logs.Warnf("bot exited with code %d", exitCode)
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Envs, "env", "e", nil, "Environment variable in 'KEY=VALUE' form (may be repeated)")
	attachBuildCmdFlags(cmd)

	return cmd
}
