// Package loader determines the live values of the dynamic loader's
// substitution tokens by asking the loader itself.
package loader

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/elfview"
	"github.com/sliverarmory/ldfind/helper"
)

const (
	markerPre  = "/LDFIND_PRE/"
	markerPost = "/LDFIND_POST"

	tokenLib      = "$LIB"
	tokenPlatform = "$PLATFORM"
)

// DefaultHelpers are tried in order for a harmless dynamically linked
// program to run under the loader.
var DefaultHelpers = []string{"/bin/true", "/bin/cp", "/usr/bin/true", "/usr/bin/cp"}

var unameLocations = []string{"/bin/uname", "/usr/bin/uname"}

// Resolver computes Tokens. Every field may be replaced, which is how tests
// substitute a fake loader.
type Resolver struct {
	Runner helper.Runner
	Logger *log.Logger

	SelfPath           func() (string, error)
	Interpreter        func() (string, bool)
	DefaultInterpreter func() (string, error)
	Executable         func(path string) bool
	Locate             func(paths []string, lookName string) (string, bool)
	Machine            func() (string, error)
	Environ            func() []string

	Helpers     []string
	PointerBits int
}

// NewResolver returns a Resolver wired to the running system.
func NewResolver(runner helper.Runner, logger *log.Logger) *Resolver {
	if runner == nil {
		runner = helper.Exec{CombineStderr: true}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		Runner:             runner,
		Logger:             logger,
		SelfPath:           elfview.SelfPath,
		Interpreter:        selfInterpreter,
		DefaultInterpreter: elfview.CurrentDefaultInterpreter,
		Executable:         helper.Executable,
		Locate:             helper.FirstExecutable,
		Machine:            helper.Machine,
		Environ:            os.Environ,
		Helpers:            DefaultHelpers,
		PointerBits:        strconv.IntSize,
	}
}

func selfInterpreter() (string, bool) {
	if image, err := elfview.OpenSelf(); err == nil {
		interp, ok := image.Interpreter()
		_ = image.Close()
		if ok {
			return interp, true
		}
	}
	return elfview.MappedLoader()
}

// Resolve never fails; each unavailable value falls back to a documented
// default and adds a warning.
func (r *Resolver) Resolve() (Tokens, []diag.Warning) {
	var (
		tokens   Tokens
		warnings []diag.Warning
	)

	if self, err := r.SelfPath(); err != nil || self == "" {
		warnings = append(warnings, diag.New(diag.OriginUnknown, "cannot read own executable path"))
	} else {
		tokens.Origin = filepath.Dir(self)
	}

	interp := r.interpreter(&warnings)
	helperPath, ok := r.Locate(r.Helpers, "")
	if !ok {
		warnings = append(warnings, diag.New(diag.NoHelper, "none of %s is executable", strings.Join(r.Helpers, ", ")))
	}

	var libOK, platformOK bool
	if ok {
		tokens.Lib, libOK = r.trace(tokenLib, interp, helperPath)
		tokens.Platform, platformOK = r.trace(tokenPlatform, interp, helperPath)
	}

	if !libOK {
		tokens.Lib = "lib"
		if r.PointerBits == 64 {
			tokens.Lib = "lib64"
		}
		warnings = append(warnings, diag.New(diag.LibAssumed, "assuming $LIB is %s", tokens.Lib))
	}
	if !platformOK {
		machine, ok := r.uname()
		if !ok {
			machine = "?"
			warnings = append(warnings, diag.New(diag.UnameFailed, "uname -m failed"))
		}
		tokens.Platform = machine
		warnings = append(warnings, diag.New(diag.PlatformAssumed, "assuming $PLATFORM is %s", machine))
	}

	r.Logger.Debug("resolved loader tokens", "lib", tokens.Lib, "platform", tokens.Platform, "origin", tokens.Origin)
	return tokens, warnings
}

// interpreter returns a usable interpreter path, or "" when the forced trace
// must be skipped.
func (r *Resolver) interpreter(warnings *[]diag.Warning) string {
	interp, ok := r.Interpreter()
	if !ok {
		fallback, err := r.DefaultInterpreter()
		if err != nil {
			*warnings = append(*warnings, diag.New(diag.InterpreterAssumed, "%v", err))
			return ""
		}
		interp = fallback
		*warnings = append(*warnings, diag.New(diag.InterpreterAssumed, "cannot read interpreter, assuming %s", interp))
	}
	if !r.Executable(interp) {
		*warnings = append(*warnings, diag.New(diag.InterpreterUnusable, "cannot access %s", interp))
		return ""
	}
	return interp
}

// trace runs the helper with a sentinel search path containing token and
// recovers what the loader substituted for it.
func (r *Resolver) trace(token string, interp string, helperPath string) (string, bool) {
	env := helper.EditEnv(r.Environ(), []string{"LD_DEBUG_OUTPUT"},
		"LD_LIBRARY_PATH="+markerPre+token+markerPost,
		"LD_DEBUG=libs",
	)

	var attempts []helper.Command
	if interp != "" {
		attempts = append(attempts, helper.Command{Path: interp, Args: []string{"--inhibit-cache", helperPath}, Env: env})
	}
	attempts = append(attempts, helper.Command{Path: helperPath, Env: env})

	for _, cmd := range attempts {
		out, err := r.Runner.Run(cmd)
		if err != nil {
			r.Logger.Debug("loader trace failed", "cmd", cmd.String(), "err", err)
		}
		if value, ok := scanMarkers(out, token); ok {
			r.Logger.Debug("loader trace", "token", token, "value", value, "cmd", cmd.String())
			return value, true
		}
	}
	return "", false
}

// scanMarkers finds the first line carrying both markers. A value equal to
// the token itself means the loader did not substitute it.
func scanMarkers(out []byte, token string) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		pre := strings.Index(line, markerPre)
		if pre < 0 {
			continue
		}
		rest := line[pre+len(markerPre):]
		post := strings.Index(rest, markerPost)
		if post < 0 {
			continue
		}
		value := rest[:post]
		if value == "" || value == token {
			continue
		}
		return value, true
	}
	return "", false
}

func (r *Resolver) uname() (string, bool) {
	if path, ok := r.Locate(unameLocations, "uname"); ok {
		out, err := r.Runner.Run(helper.Command{
			Path: path,
			Args: []string{"-m"},
			Env:  helper.EditEnv(r.Environ(), nil, helper.Cleared(helper.LoaderVariables...)...),
		})
		if err == nil {
			if machine := strings.TrimSpace(string(out)); machine != "" {
				return machine, true
			}
		}
		r.Logger.Debug("uname failed", "path", path, "err", err)
	}
	if machine, err := r.Machine(); err == nil && machine != "" {
		return machine, true
	}
	return "", false
}
