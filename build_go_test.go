package ldfind_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const sampleLibraryName = "libldfindsample.so"

// goBuild runs go build with cgo enabled, preferring zig cc when present.
func goBuild(t *testing.T, args ...string) {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not in PATH")
	}

	baseEnv := overrideEnv(os.Environ(), map[string]string{
		"CGO_ENABLED": "1",
		"GOCACHE":     filepath.Join(os.TempDir(), "ldfind-go-build-cache"),
	})
	args = append([]string{"build", "-trimpath"}, args...)

	if _, err := exec.LookPath("zig"); err == nil {
		cc := "zig cc"
		if target, ok := zigTargetFor(runtime.GOARCH); ok {
			cc = "zig cc -target " + target
		}
		cmd := exec.Command("go", args...)
		cmd.Env = overrideEnv(baseEnv, map[string]string{"CC": cc})
		out, err := cmd.CombinedOutput()
		if err == nil {
			return
		}
		t.Logf("go build with zig cc failed, retrying with default compiler: %v\n%s", err, out)
	}

	cmd := exec.Command("go", args...)
	cmd.Env = baseEnv
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

// buildSampleLibrary builds testdata/samplelib as a shared library in dir.
func buildSampleLibrary(t *testing.T, dir string) string {
	t.Helper()
	out := filepath.Join(dir, sampleLibraryName)
	goBuild(t, "-buildmode=c-shared", "-o", out, "./testdata/samplelib")
	_ = os.Remove(strings.TrimSuffix(out, ".so") + ".h")
	return out
}

// buildCLI builds the ldfind command, recording rpath in its dynamic section
// when set.
func buildCLI(t *testing.T, dir string, rpath string) string {
	t.Helper()
	out := filepath.Join(dir, "ldfind")
	args := []string{"-o", out}
	if rpath != "" {
		args = append(args, "-ldflags=-r "+rpath)
	}
	goBuild(t, append(args, "./cli")...)
	return out
}

func zigTargetFor(goarch string) (string, bool) {
	switch goarch {
	case "386":
		return "x86-linux-gnu", true
	case "amd64":
		return "x86_64-linux-gnu", true
	case "arm64":
		return "aarch64-linux-gnu", true
	default:
		return "", false
	}
}

func overrideEnv(base []string, overrides map[string]string) []string {
	block := make(map[string]struct{}, len(overrides))
	for key := range overrides {
		block[key] = struct{}{}
	}

	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		if _, drop := block[kv[:eq]]; drop {
			continue
		}
		out = append(out, kv)
	}

	for key, value := range overrides {
		out = append(out, key+"="+value)
	}
	return out
}
