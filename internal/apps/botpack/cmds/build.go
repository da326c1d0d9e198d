package botpack

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	appconfig "github.com/botpack/botpack/internal/apps/botpack/config"
	"github.com/botpack/botpack/internal/buildcontext"
	"github.com/botpack/botpack/internal/cache"
	"github.com/botpack/botpack/internal/dockerclient"
	"github.com/botpack/botpack/internal/logs"
	"github.com/botpack/botpack/internal/pipeline"
	"github.com/botpack/botpack/internal/recipe"
	"github.com/botpack/botpack/internal/state"
	"github.com/botpack/botpack/internal/ui"
	"github.com/botpack/botpack/internal/utils"
	"github.com/botpack/botpack/internal/versions"

	"github.com/spf13/cobra"
)

type buildOptions struct {
	BaseImage string
	Workdir   string
	Rebuild   bool
}

// attachBuildCmdFlags attaches the "build" cmd flags to the given command and
// injects a buildOptions instance into the command's context via PreRun.
func attachBuildCmdFlags(cmd *cobra.Command) {
	opts := &buildOptions{}

	flags := cmd.Flags()
	flags.StringVar(&opts.BaseImage, "base", "", "Pinned base image reference (e.g. 'python:3.12-slim')")
	flags.StringVar(&opts.Workdir, "workdir", "", "Absolute in-image working directory (default '/app')")
	flags.BoolVar(&opts.Rebuild, "rebuild", false, "Force rebuild even if a cached image exists")

	// Store opts in command context before running
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		cmd.SetContext(withBuildOptions(cmd.Context(), opts))
	}
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [PATH]",
		Short: "Build the bot image for the project",
		Long: `Build (or reuse from cache) the container image for the given bot project.

If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: buildCmdRunE,
	}

	attachBuildCmdFlags(cmd)

	return cmd
}

// buildCmdRunE is a separate function so root can reuse it (default command)
func buildCmdRunE(cmd *cobra.Command, args []string) error {
	logs.Debugf("building image...")

	opts := getBuildOptions(cmd.Context())
	if opts == nil {
		// This should not normally happen because attachBuildCmdFlags sets it,
		// but keep a safe fallback for root or tests.
		opts = &buildOptions{}
	}

	pathArg, err := resolvePathArg(args)
	if err != nil {
		return err
	}

	signalsCtx, stopSignalsCtx := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalsCtx()

	res, err := resolveImage(signalsCtx, pathArg, opts)
	if err != nil {
		return err
	}

	if res.Cached {
		logs.Infof("image %s is up to date (cached)", res.Build.Tag)
	} else {
		logs.Infof("built image %s", res.Build.Tag)
	}
	logs.Infof("run it with 'botpack run %s'", pathArg)

	return nil
}

type buildResult struct {
	Build  state.Build
	Cached bool
}

// resolveImage runs the full chain: snapshot the project, run the four build
// stages, and answer the cache question before touching the daemon's builder.
func resolveImage(ctx context.Context, pathArg string, opts *buildOptions) (*buildResult, error) {
	projectPath, err := utils.ResolveFolderStrict(pathArg)
	if err != nil {
		return nil, err
	}

	bctx, err := buildcontext.New(projectPath)
	if err != nil {
		return nil, err
	}

	setupBuildLog(filepath.Base(projectPath))

	dockerClient, err := dockerclient.NewDockerClient()
	if err != nil {
		return nil, err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithEntrypointPicker(promptEntrypoint),
	}
	if opts.BaseImage != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithBaseImage(opts.BaseImage))
	} else if base := pinBaseFromManifest(bctx); base != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithBaseImage(base))
	}
	if opts.Workdir != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithWorkdir(opts.Workdir))
	}

	p := pipeline.New(bctx, dockerClient, pipelineOpts...)

	plan, df, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	contextDigest, err := buildcontext.Digest(bctx)
	if err != nil {
		return nil, err
	}

	recipeKey := cache.CacheKeyRecipeLines(df)
	contextKey := cache.KeyFromHexDigest(contextDigest)
	inputsKey := cache.CombineKeys(recipeKey, contextKey)
	tag := cache.ImageTag(projectPath, recipeKey, contextKey)

	store, err := state.DefaultBuildStore(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Rebuild {
		_ = store.Delete(ctx, string(inputsKey))
	}

	recorder := &buildRecorder{
		store: store,
		meta: state.Build{
			Tag:        tag,
			Project:    projectPath,
			BaseImage:  plan.BaseImage,
			Entrypoint: plan.Entrypoint,
		},
	}

	manager, err := cache.NewManager(appconfig.BuildLockFile(), recorder)
	if err != nil {
		return nil, err
	}

	imageID, cached, err := manager.ResolveImage(ctx, inputsKey,
		func(ctx context.Context, id cache.ImageID) bool {
			return dockerClient.ImageExists(ctx, string(id))
		},
		func(ctx context.Context) (cache.ImageID, error) {
			logs.Banner("Building " + filepath.Base(projectPath))
			showRecipe(df)

			builtTag, err := dockerClient.BuildImage(ctx, bctx, df.String(), tag)
			if err != nil {
				return "", pipeline.ClassifyBuildError(plan.Manifest, err)
			}
			return cache.ImageID(builtTag), nil
		},
	)
	if err != nil {
		return nil, err
	}

	logs.Debugf("pipeline finished in state %s, image %s", p.State(), imageID)

	b := recorder.meta
	b.InputsKey = string(inputsKey)
	b.ImageID = string(imageID)

	return &buildResult{Build: b, Cached: cached}, nil
}

// pinBaseFromManifest derives the base image from manifest pragma comments
// like "# python>=3.10,<3.13". Empty means "use the default pin".
func pinBaseFromManifest(bctx buildcontext.Context) string {
	manifest, err := bctx.ManifestBytes()
	if err != nil {
		return ""
	}

	constraints := versions.InterpreterConstraints(manifest)
	if len(constraints) == 0 {
		return ""
	}

	base, err := versions.PinBase(constraints)
	if err != nil {
		logs.Warnf("ignoring interpreter constraints %v: %v", constraints, err)
		return ""
	}
	return base
}

// promptEntrypoint asks the user which root-level script to run when the
// context offers more than one candidate.
func promptEntrypoint(candidates []string) (string, error) {
	options := make([]ui.SelectOption, 0, len(candidates))
	for _, c := range candidates {
		options = append(options, logs.NewSelectOption(c, c))
	}

	chosen, err := logs.PromptSelectOne("Several entrypoint candidates found. Which script starts the bot?", options)
	if err != nil {
		return "", err
	}
	return chosen.OptionID(), nil
}

// showRecipe echoes the generated Dockerfile lines through a tail box so the
// user sees what is being built without the full log noise.
func showRecipe(df recipe.Dockerfile) {
	tail := logs.NewTailBox("image recipe")
	defer tail.Close()

	for _, line := range df {
		tail.Println(line)
	}
}

// setupBuildLog routes the full log to a per-invocation file under the config
// dir. Failures are non-fatal; the build still runs with stdout only.
func setupBuildLog(projectName string) {
	buildID, err := utils.RandomHex(4)
	if err != nil {
		return
	}

	f, err := appconfig.BuildLogOpen(projectName, buildID)
	if err != nil {
		logs.Warnf("build log unavailable: %v", err)
		return
	}

	logs.SetFullLogWriter(ui.NewSyncWriter(f, 200*time.Millisecond))
	logs.InfofSilent("build log for %s (%s)", projectName, buildID)
}

func resolvePathArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return pwd, nil
}

// buildRecorder adapts the sqlite build store to the cache manager, carrying
// the metadata of the in-flight build so a record can be written under the
// lock.
type buildRecorder struct {
	store *state.BuildStore
	meta  state.Build
}

func (r *buildRecorder) LookupImage(ctx context.Context, key string) (string, bool, error) {
	b, found, err := r.store.GetByKey(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	return b.ImageID, true, nil
}

func (r *buildRecorder) RecordImage(ctx context.Context, key, imageID string) error {
	if r.store == nil {
		return errors.New("build store is not set")
	}
	b := r.meta
	b.InputsKey = key
	b.ImageID = imageID
	return r.store.Upsert(ctx, b)
}

func (r *buildRecorder) ForgetImage(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

type ctxKeyBuildOptions struct{}

func withBuildOptions(ctx context.Context, opts *buildOptions) context.Context {
	return context.WithValue(ctx, ctxKeyBuildOptions{}, opts)
}

func getBuildOptions(ctx context.Context) *buildOptions {
	v := ctx.Value(ctxKeyBuildOptions{})
	if v == nil {
		return nil
	}
	return v.(*buildOptions)
}
