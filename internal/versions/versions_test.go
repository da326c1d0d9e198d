package versions

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseBaseRef(t *testing.T) {
	t.Parallel()

	ref, err := ParseBaseRef("python:3.11-slim")
	if err != nil {
		t.Fatalf("ParseBaseRef failed: %v", err)
	}
	if ref.Name != "python" || ref.Tag != "3.11-slim" || ref.Variant != "slim" {
		t.Fatalf("ParseBaseRef = %+v", ref)
	}
	if got := ref.Version.String(); got != "3.11.0" {
		t.Fatalf("Version = %s, want 3.11.0", got)
	}
	if ref.String() != "python:3.11-slim" {
		t.Fatalf("String = %s", ref.String())
	}
}

func TestValidatePinnedBase(t *testing.T) {
	t.Parallel()

	valid := []string{"python:3.11-slim", "python:3.12", "debian:12.4", "node:20.10.0-alpine"}
	for _, ref := range valid {
		if err := ValidatePinnedBase(ref); err != nil {
			t.Fatalf("ValidatePinnedBase(%q) = %v, want nil", ref, err)
		}
	}

	invalid := []string{"python", "python:", "python:latest", "python:slim", "python:bookworm"}
	for _, ref := range invalid {
		if err := ValidatePinnedBase(ref); !errors.Is(err, ErrUnpinnedBase) {
			t.Fatalf("ValidatePinnedBase(%q) = %v, want ErrUnpinnedBase", ref, err)
		}
	}
}

func TestMaxSatisfying(t *testing.T) {
	t.Parallel()

	got, err := MaxSatisfying([]string{"3.9", "3.10", "3.11", "3.12"}, []string{">=3.10", "<3.12"})
	if err != nil {
		t.Fatalf("MaxSatisfying failed: %v", err)
	}
	if got != "3.11" {
		t.Fatalf("MaxSatisfying = %s, want 3.11", got)
	}

	if _, err := MaxSatisfying([]string{"3.9"}, []string{">=3.10"}); err == nil {
		t.Fatal("expected error for unsatisfiable constraints")
	}

	if _, err := MaxSatisfying(nil, nil); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestInterpreterConstraints(t *testing.T) {
	t.Parallel()

	manifest := []byte(`# python >=3.10
python-telegram-bot==20.7
requests
# just a comment
# python <3.12
`)

	got := InterpreterConstraints(manifest)
	want := []string{">=3.10", "<3.12"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InterpreterConstraints = %v, want %v", got, want)
	}
}

func TestPinBase(t *testing.T) {
	t.Parallel()

	got, err := PinBase(nil)
	if err != nil {
		t.Fatalf("PinBase failed: %v", err)
	}
	if got != "python:3.11-slim" {
		t.Fatalf("PinBase default = %s", got)
	}

	got, err = PinBase([]string{">=3.12"})
	if err != nil {
		t.Fatalf("PinBase failed: %v", err)
	}
	if got != "python:3.12-slim" {
		t.Fatalf("PinBase constrained = %s", got)
	}

	if _, err := PinBase([]string{">=4.0"}); err == nil {
		t.Fatal("expected error for unsatisfiable interpreter constraint")
	}
}
