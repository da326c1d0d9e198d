package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// The two fatal, unrecoverable failure kinds the pipeline can report. Check
// with errors.Is; the caller must fix the input and re-invoke the whole
// pipeline from stage 1.
var (
	ErrBaseUnavailable         = errors.New("base runtime unavailable")
	ErrDependencyInstallFailed = errors.New("dependency install failed")
)

// BaseUnavailableError is stage 1 failing to resolve the pinned base.
type BaseUnavailableError struct {
	Ref    string
	Reason error
}

func (e *BaseUnavailableError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrBaseUnavailable, e.Ref, e.Reason)
}

func (e *BaseUnavailableError) Unwrap() error { return ErrBaseUnavailable }

// DependencyInstallError is stage 3 failing: missing manifest, or the
// package installer reporting an unresolved dependency during the image
// build.
type DependencyInstallError struct {
	Manifest string
	Reason   error
}

func (e *DependencyInstallError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrDependencyInstallFailed, e.Manifest, e.Reason)
}

func (e *DependencyInstallError) Unwrap() error { return ErrDependencyInstallFailed }

// ClassifyBuildError maps a daemon-side image build failure back onto the
// pipeline's taxonomy. The only RUN instruction in a generated recipe is the
// installer invocation, so a failed RUN step is an install failure.
func ClassifyBuildError(manifest string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "pip install") || strings.Contains(msg, "executor failed running") {
		return &DependencyInstallError{Manifest: manifest, Reason: err}
	}
	return err
}
