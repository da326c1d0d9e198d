// Package pipeline drives the four ordered build stages that turn a build
// context into a runnable image definition:
//
//	base-selected → workdir-set → dependencies-installed → app-materialized
//
// The sequence is strictly linear. There is no branching, no retry and no
// rollback: any stage failure moves the pipeline into the terminal
// build-failed state and aborts everything after it.
package pipeline

import (
	"context"
	"fmt"

	"github.com/botpack/botpack/internal/buildcontext"
	"github.com/botpack/botpack/internal/logs"
	"github.com/botpack/botpack/internal/recipe"
	"github.com/botpack/botpack/internal/versions"
)

// State is the pipeline's position in the stage sequence.
type State string

const (
	StateInitial               State = "initial"
	StateBaseSelected          State = "base-selected"
	StateWorkdirSet            State = "workdir-set"
	StateDependenciesInstalled State = "dependencies-installed"
	StateAppMaterialized       State = "app-materialized"
	StateBuildFailed           State = "build-failed"
)

// BaseResolver checks that a pinned base image reference can actually be
// materialized. The docker client implements it; tests stub it.
type BaseResolver interface {
	ResolveBaseImage(ctx context.Context, ref string) error
}

// EntrypointPicker resolves ambiguity when the context offers more than one
// entrypoint candidate. The CLI wires an interactive prompt here.
type EntrypointPicker func(candidates []string) (string, error)

// Pipeline owns a single build attempt. It is not reusable after Run.
type Pipeline struct {
	bctx     buildcontext.Context
	resolver BaseResolver
	pick     EntrypointPicker

	plan  *recipe.Plan
	state State

	depKey string
}

// Option tweaks pipeline construction.
type Option func(*Pipeline)

// WithBaseImage overrides the default pinned base reference.
func WithBaseImage(ref string) Option {
	return func(p *Pipeline) { p.plan.BaseImage = ref }
}

// WithWorkdir overrides the default in-image working directory.
func WithWorkdir(dir string) Option {
	return func(p *Pipeline) { p.plan.Workdir = dir }
}

// WithEntrypointPicker sets the ambiguity resolver. Without one, the first
// candidate wins.
func WithEntrypointPicker(pick EntrypointPicker) Option {
	return func(p *Pipeline) { p.pick = pick }
}

func New(bctx buildcontext.Context, resolver BaseResolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		bctx:     bctx,
		resolver: resolver,
		plan:     recipe.NewPlan(),
		state:    StateInitial,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports where the pipeline currently is. After a failed Run it is
// always StateBuildFailed.
func (p *Pipeline) State() State {
	return p.state
}

// DependencyKey is the manifest content digest computed by stage 3. Empty
// until that stage has run.
func (p *Pipeline) DependencyKey() string {
	return p.depKey
}

// Run executes all four stages in order and returns the completed plan plus
// the generated Dockerfile.
func (p *Pipeline) Run(ctx context.Context) (*recipe.Plan, recipe.Dockerfile, error) {
	type stage struct {
		next State
		fn   func(context.Context) error
	}

	stages := []stage{
		{StateBaseSelected, p.selectBase},
		{StateWorkdirSet, p.setWorkdir},
		{StateDependenciesInstalled, p.installDependencies},
		{StateAppMaterialized, p.materializeApp},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			p.state = StateBuildFailed
			return nil, nil, err
		}
		if err := s.fn(ctx); err != nil {
			p.state = StateBuildFailed
			return nil, nil, err
		}
		p.state = s.next
		logs.Debugf("pipeline: reached %s", s.next)
	}

	df, err := p.plan.Generate()
	if err != nil {
		p.state = StateBuildFailed
		return nil, nil, err
	}

	return p.plan, df, nil
}

// Stage 1: pin and resolve the base runtime.
func (p *Pipeline) selectBase(ctx context.Context) error {
	if err := versions.ValidatePinnedBase(p.plan.BaseImage); err != nil {
		return &BaseUnavailableError{Ref: p.plan.BaseImage, Reason: err}
	}
	if p.resolver != nil {
		if err := p.resolver.ResolveBaseImage(ctx, p.plan.BaseImage); err != nil {
			return &BaseUnavailableError{Ref: p.plan.BaseImage, Reason: err}
		}
	}
	return nil
}

// Stage 2: fix the absolute execution directory every later stage and the
// final entrypoint operate in.
func (p *Pipeline) setWorkdir(_ context.Context) error {
	if p.plan.Workdir == "" {
		p.plan.Workdir = recipe.DefaultWorkdir
	}
	if p.plan.Workdir[0] != '/' {
		return fmt.Errorf("workdir %q must be absolute", p.plan.Workdir)
	}
	return nil
}

// Stage 3: the manifest must sit at the context root before install runs.
// Its digest becomes the dependency-layer cache key.
func (p *Pipeline) installDependencies(_ context.Context) error {
	if !p.bctx.HasManifest() {
		return &DependencyInstallError{
			Manifest: buildcontext.ManifestName,
			Reason:   buildcontext.ErrMissingManifest,
		}
	}

	key, err := buildcontext.ManifestDigest(p.bctx)
	if err != nil {
		return &DependencyInstallError{Manifest: buildcontext.ManifestName, Reason: err}
	}

	p.depKey = key
	p.plan.Manifest = buildcontext.ManifestName
	return nil
}

// Stage 4: layer the remaining files and fix the terminal run command.
func (p *Pipeline) materializeApp(_ context.Context) error {
	candidates, err := buildcontext.EntrypointCandidates(p.bctx)
	if err != nil {
		return err
	}

	chosen := candidates[0]
	if len(candidates) > 1 && p.pick != nil {
		chosen, err = p.pick(candidates)
		if err != nil {
			return err
		}
	}

	p.plan.Entrypoint = chosen
	return nil
}
