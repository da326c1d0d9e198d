package recipe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/botpack/botpack/internal/version"
)

// Dockerfile is an ordered list of instructions.
type Dockerfile []string

func (df Dockerfile) String() string {
	out := ""
	for _, line := range df {
		out += line + "\n"
	}
	return out
}

// DependencyLines returns only the lines that make up the dependency layer.
// Tests use this to assert that application-file changes never touch the
// cached install layer.
func (df Dockerfile) DependencyLines() Dockerfile {
	out := Dockerfile{}
	for _, line := range df {
		if line == "# APPLICATION CODE + ENTRYPOINT" {
			break
		}
		if strings.HasPrefix(line, "COPY") || strings.HasPrefix(line, "RUN") {
			out = append(out, line)
		}
	}
	return out
}

// Generate emits the Dockerfile for the plan. Output is deterministic: the
// same plan always produces byte-identical lines.
func (p *Plan) Generate() (Dockerfile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	lines := Dockerfile{}

	lines = append(lines, "# ───────────────────────────────────────────")
	lines = append(lines, "# PINNED BASE RUNTIME")
	lines = append(lines, fmt.Sprintf("FROM %s", p.BaseImage))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# WORKING DIRECTORY")
	lines = append(lines, fmt.Sprintf("WORKDIR %s", p.Workdir))

	// Manifest is copied alone so the install layer stays cached while
	// application files churn.
	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# DEPENDENCY LAYER (manifest only)")
	lines = append(lines, fmt.Sprintf("COPY %s ./", p.Manifest))
	lines = append(lines, "RUN "+jsonExec([]string{"pip", "install", "--no-cache-dir", "-r", p.Manifest}))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# APPLICATION CODE + ENTRYPOINT")
	lines = append(lines, "COPY . .")
	lines = append(lines, "CMD "+jsonExec(p.RunCommand()))

	lines = append(lines, "", fmt.Sprintf("LABEL botpack.entrypoint=%q", p.Entrypoint))
	lines = append(lines, "LABEL botpack=true")
	lines = append(lines, fmt.Sprintf("LABEL %s=%d", version.ImageSchemaVersionLabel, version.ImageSchemaVersion))

	return lines, nil
}

func jsonExec(argv []string) string {
	b, _ := json.Marshal(argv)
	return string(b)
}
