package recipe

import (
	"reflect"
	"strings"
	"testing"
)

func validPlan() *Plan {
	p := NewPlan()
	p.Manifest = "requirements.txt"
	p.Entrypoint = "main.py"
	return p
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	p := validPlan()

	df1, err := p.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	df2, err := p.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if df1.String() != df2.String() {
		t.Fatalf("generation is not deterministic:\n%s\nvs\n%s", df1, df2)
	}
}

func TestGenerateShape(t *testing.T) {
	t.Parallel()

	df, err := validPlan().Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := df.String()

	wantLines := []string{
		"FROM python:3.11-slim",
		"WORKDIR /app",
		"COPY requirements.txt ./",
		`RUN ["pip","install","--no-cache-dir","-r","requirements.txt"]`,
		"COPY . .",
		`CMD ["python","main.py"]`,
	}

	lastIdx := -1
	for _, want := range wantLines {
		idx := strings.Index(out, want)
		if idx == -1 {
			t.Fatalf("generated Dockerfile missing %q:\n%s", want, out)
		}
		if idx < lastIdx {
			t.Fatalf("line %q out of order:\n%s", want, out)
		}
		lastIdx = idx
	}

	// Manifest copy must come before the bulk copy: that is the whole
	// cache-efficiency point.
	if strings.Index(out, "COPY requirements.txt ./") > strings.Index(out, "COPY . .") {
		t.Fatalf("manifest copy is not isolated before bulk copy:\n%s", out)
	}

	if !strings.Contains(out, "LABEL botpack.image_schema_version=") {
		t.Fatalf("schema version label missing:\n%s", out)
	}
}

func TestDependencyLinesIgnoreEntrypoint(t *testing.T) {
	t.Parallel()

	p1 := validPlan()
	p2 := validPlan()
	p2.Entrypoint = "bot.py"

	df1, err := p1.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	df2, err := p2.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !reflect.DeepEqual(df1.DependencyLines(), df2.DependencyLines()) {
		t.Fatalf("dependency layer changed with entrypoint change:\n%v\nvs\n%v",
			df1.DependencyLines(), df2.DependencyLines())
	}
	if df1.String() == df2.String() {
		t.Fatal("full Dockerfile did not change with entrypoint change")
	}
}

func TestPlanValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Plan)
	}{
		{"empty base", func(p *Plan) { p.BaseImage = "" }},
		{"unpinned base", func(p *Plan) { p.BaseImage = "python" }},
		{"relative workdir", func(p *Plan) { p.Workdir = "app" }},
		{"missing manifest", func(p *Plan) { p.Manifest = "" }},
		{"missing entrypoint", func(p *Plan) { p.Entrypoint = "" }},
		{"missing interpreter", func(p *Plan) { p.Interpreter = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := validPlan()
			tc.mutate(p)
			if err := p.Validate(); err == nil {
				t.Fatalf("Validate accepted invalid plan (%s)", tc.name)
			}
			if _, err := p.Generate(); err == nil {
				t.Fatalf("Generate accepted invalid plan (%s)", tc.name)
			}
		})
	}

	if err := validPlan().Validate(); err != nil {
		t.Fatalf("Validate rejected valid plan: %v", err)
	}
}

func TestRunCommand(t *testing.T) {
	t.Parallel()

	p := validPlan()
	if got, want := p.RunCommand(), []string{"python", "main.py"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("RunCommand = %v, want %v", got, want)
	}
}
