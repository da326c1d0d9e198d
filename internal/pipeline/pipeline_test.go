package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/botpack/botpack/internal/buildcontext"
)

type stubResolver struct {
	err   error
	calls int
}

func (r *stubResolver) ResolveBaseImage(_ context.Context, _ string) error {
	r.calls++
	return r.err
}

func newContext(t *testing.T, files map[string]string) buildcontext.Context {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	c, err := buildcontext.New(dir)
	if err != nil {
		t.Fatalf("buildcontext.New failed: %v", err)
	}
	return c
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"requirements.txt": "python-telegram-bot==20.7\n",
		"main.py":          "print('bot')",
	})

	resolver := &stubResolver{}
	p := New(bctx, resolver)

	plan, df, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if p.State() != StateAppMaterialized {
		t.Fatalf("State = %s, want %s", p.State(), StateAppMaterialized)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", resolver.calls)
	}
	if plan.Workdir != "/app" {
		t.Fatalf("Workdir = %s, want /app", plan.Workdir)
	}
	if got := plan.RunCommand(); got[0] != "python" || got[1] != "main.py" {
		t.Fatalf("RunCommand = %v, want [python main.py]", got)
	}
	if !strings.Contains(df.String(), `CMD ["python","main.py"]`) {
		t.Fatalf("Dockerfile missing fixed run command:\n%s", df)
	}
	if p.DependencyKey() == "" {
		t.Fatal("DependencyKey is empty after a successful run")
	}
}

func TestRunBaseUnavailable(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"requirements.txt": "requests\n",
		"main.py":          "print()",
	})

	resolver := &stubResolver{err: errors.New("manifest unknown: pull access denied")}
	p := New(bctx, resolver)

	_, _, err := p.Run(context.Background())
	if !errors.Is(err, ErrBaseUnavailable) {
		t.Fatalf("Run error = %v, want ErrBaseUnavailable", err)
	}
	if p.State() != StateBuildFailed {
		t.Fatalf("State = %s, want %s", p.State(), StateBuildFailed)
	}

	var bue *BaseUnavailableError
	if !errors.As(err, &bue) {
		t.Fatalf("error %v is not a *BaseUnavailableError", err)
	}
	if bue.Ref != "python:3.11-slim" {
		t.Fatalf("Ref = %s", bue.Ref)
	}
}

func TestRunUnpinnedBaseFailsBeforeResolver(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"requirements.txt": "requests\n",
		"main.py":          "print()",
	})

	resolver := &stubResolver{}
	p := New(bctx, resolver, WithBaseImage("python:latest"))

	_, _, err := p.Run(context.Background())
	if !errors.Is(err, ErrBaseUnavailable) {
		t.Fatalf("Run error = %v, want ErrBaseUnavailable", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver called %d times for an unpinned ref, want 0", resolver.calls)
	}
}

func TestRunMissingManifestStopsBeforeStageFour(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"main.py": "print()",
	})

	p := New(bctx, &stubResolver{})

	_, _, err := p.Run(context.Background())
	if !errors.Is(err, ErrDependencyInstallFailed) {
		t.Fatalf("Run error = %v, want ErrDependencyInstallFailed", err)
	}
	if p.State() != StateBuildFailed {
		t.Fatalf("State = %s, want %s", p.State(), StateBuildFailed)
	}

	// Stage 4 never ran: the plan has no entrypoint.
	if p.plan.Entrypoint != "" {
		t.Fatalf("entrypoint %q was materialized after a failed install stage", p.plan.Entrypoint)
	}
}

func TestRunRelativeWorkdirFails(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"requirements.txt": "requests\n",
		"main.py":          "print()",
	})

	p := New(bctx, &stubResolver{}, WithWorkdir("app"))

	if _, _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for relative workdir")
	}
	if p.State() != StateBuildFailed {
		t.Fatalf("State = %s, want %s", p.State(), StateBuildFailed)
	}
}

func TestRunEntrypointPicker(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"requirements.txt": "requests\n",
		"main.py":          "print()",
		"bot.py":           "print()",
	})

	var offered []string
	pick := func(candidates []string) (string, error) {
		offered = candidates
		return "bot.py", nil
	}

	p := New(bctx, &stubResolver{}, WithEntrypointPicker(pick))

	plan, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if plan.Entrypoint != "bot.py" {
		t.Fatalf("Entrypoint = %s, want bot.py", plan.Entrypoint)
	}
	if len(offered) != 2 || offered[0] != "main.py" {
		t.Fatalf("picker offered %v", offered)
	}
}

func TestRunIdempotentRecipe(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"requirements.txt": "python-telegram-bot==20.7\n",
		"main.py":          "print('bot')",
	}

	bctx := newContext(t, files)

	_, df1, err := New(bctx, &stubResolver{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	_, df2, err := New(bctx, &stubResolver{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if df1.String() != df2.String() {
		t.Fatalf("two runs over an unchanged context produced different recipes:\n%s\nvs\n%s", df1, df2)
	}
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	bctx := newContext(t, map[string]string{
		"requirements.txt": "requests\n",
		"main.py":          "print()",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(bctx, &stubResolver{})
	if _, _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if p.State() != StateBuildFailed {
		t.Fatalf("State = %s, want %s", p.State(), StateBuildFailed)
	}
}

func TestClassifyBuildError(t *testing.T) {
	t.Parallel()

	err := ClassifyBuildError("requirements.txt",
		errors.New(`executor failed running [pip install --no-cache-dir -r requirements.txt]: exit code 1`))
	if !errors.Is(err, ErrDependencyInstallFailed) {
		t.Fatalf("ClassifyBuildError = %v, want ErrDependencyInstallFailed", err)
	}

	plain := errors.New("dial unix /var/run/docker.sock: connect: no such file")
	if got := ClassifyBuildError("requirements.txt", plain); !errors.Is(got, plain) {
		t.Fatalf("ClassifyBuildError rewrote unrelated error: %v", got)
	}

	if ClassifyBuildError("requirements.txt", nil) != nil {
		t.Fatal("ClassifyBuildError(nil) != nil")
	}
}
