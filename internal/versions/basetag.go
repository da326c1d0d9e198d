package versions

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Interpreter versions botpack knows how to pin a base image for, oldest
// first.
var supportedInterpreters = []string{"3.9", "3.10", "3.11", "3.12"}

// defaultInterpreter is used when the manifest carries no version pragma.
const defaultInterpreter = "3.11"

// pragmaRe matches manifest pragma comments like "# python>=3.10,<3.13".
var pragmaRe = regexp.MustCompile(`^#\s*python\s*(.+)$`)

// InterpreterConstraints scans the dependency manifest for version pragma
// comments and returns the constraint expressions found.
func InterpreterConstraints(manifest []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(manifest))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		m := pragmaRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		expr := strings.TrimSpace(m[1])
		if expr != "" {
			out = append(out, expr)
		}
	}
	return out
}

// PinBase picks the base image tag for the given constraints: the newest
// supported interpreter that satisfies all of them, in the slim variant.
// With no constraints the default interpreter is used.
func PinBase(constraints []string) (string, error) {
	version := defaultInterpreter
	if len(constraints) > 0 {
		chosen, err := MaxSatisfying(supportedInterpreters, constraints)
		if err != nil {
			return "", err
		}
		version = chosen
	}
	return fmt.Sprintf("python:%s-slim", version), nil
}
