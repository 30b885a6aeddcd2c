package helper

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEditEnv(t *testing.T) {
	base := []string{"HOME=/root", "LD_DEBUG=all", "LD_LIBRARY_PATH=/opt/lib", "PATH=/bin"}
	got := EditEnv(base, []string{"LD_DEBUG"}, "LD_LIBRARY_PATH=/x", "EMPTY=")
	want := []string{"HOME=/root", "PATH=/bin", "LD_LIBRARY_PATH=/x", "EMPTY="}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("EditEnv mismatch (-want +got):\n%s", diff)
	}
}

func TestCleared(t *testing.T) {
	got := Cleared(LoaderVariables...)
	want := []string{"LD_LIBRARY_PATH=", "LD_DEBUG=", "LD_PRELOAD="}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Cleared mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandString(t *testing.T) {
	cmd := Command{Path: "/sbin/ldconfig", Args: []string{"-p"}}
	if got := cmd.String(); got != "/sbin/ldconfig -p" {
		t.Fatalf("unexpected command string: %q", got)
	}
}

func TestRunnerFunc(t *testing.T) {
	var seen Command
	runner := RunnerFunc(func(cmd Command) ([]byte, error) {
		seen = cmd
		return []byte("x86_64\n"), nil
	})
	out, err := runner.Run(Command{Path: "uname", Args: []string{"-m"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "x86_64\n" || seen.Path != "uname" {
		t.Fatalf("unexpected run: out=%q cmd=%v", out, seen)
	}
}

func TestExecEmptyPath(t *testing.T) {
	if _, err := (Exec{}).Run(Command{}); err == nil {
		t.Fatalf("expected error for empty helper path")
	}
}
