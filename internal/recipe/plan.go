// Package recipe turns a completed build plan into a deterministic
// Dockerfile. Layer order is fixed: base, workdir, dependency install,
// application code, entrypoint. The dependency-install lines depend only on
// the manifest so the daemon can reuse that layer across builds whenever the
// manifest content is unchanged.
package recipe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Defaults for a python bot project.
const (
	DefaultBaseImage   = "python:3.11-slim"
	DefaultWorkdir     = "/app"
	DefaultInterpreter = "python"
)

// Plan holds everything the generator needs. It is assembled stage by stage
// by the pipeline; Validate is the gate before generation.
type Plan struct {
	// BaseImage is the pinned, versioned base reference (name:tag).
	BaseImage string

	// Workdir is the absolute in-image execution directory.
	Workdir string

	// Manifest is the dependency manifest file name at the context root.
	Manifest string

	// Interpreter and Entrypoint form the fixed run command
	// [Interpreter, Entrypoint].
	Interpreter string
	Entrypoint  string
}

// NewPlan returns a Plan with project defaults filled in.
func NewPlan() *Plan {
	return &Plan{
		BaseImage:   DefaultBaseImage,
		Workdir:     DefaultWorkdir,
		Interpreter: DefaultInterpreter,
	}
}

func (p *Plan) Validate() error {
	if p.BaseImage == "" {
		return errors.New("plan: base image is empty")
	}
	if !strings.Contains(p.BaseImage, ":") {
		return fmt.Errorf("plan: base image %q is not pinned to a tag", p.BaseImage)
	}
	if !filepath.IsAbs(p.Workdir) {
		return fmt.Errorf("plan: workdir %q is not absolute", p.Workdir)
	}
	if p.Manifest == "" {
		return errors.New("plan: dependency manifest is not set")
	}
	if p.Interpreter == "" || p.Entrypoint == "" {
		return errors.New("plan: run command is incomplete")
	}
	return nil
}

// RunCommand is the fixed exec-form command the image runs when instantiated.
func (p *Plan) RunCommand() []string {
	return []string{p.Interpreter, p.Entrypoint}
}
