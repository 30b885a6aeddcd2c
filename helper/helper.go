// Package helper runs the short-lived helper programs used to observe the
// system: the dynamic loader itself, ldconfig and uname.
package helper

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// LoaderVariables are cleared whenever a helper must not be influenced by the
// search paths under inspection.
var LoaderVariables = []string{"LD_LIBRARY_PATH", "LD_DEBUG", "LD_PRELOAD"}

// Command describes one helper invocation. Env is the complete environment.
type Command struct {
	Path string
	Args []string
	Env  []string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Runner runs a helper to completion and returns what it printed. Waiting has
// no timeout.
type Runner interface {
	Run(cmd Command) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(cmd Command) ([]byte, error)

func (f RunnerFunc) Run(cmd Command) ([]byte, error) {
	return f(cmd)
}

// Exec runs helpers as child processes. With CombineStderr set the child's
// stderr is interleaved into the returned output, which is where the loader
// writes LD_DEBUG traces.
type Exec struct {
	CombineStderr bool
}

func (e Exec) Run(cmd Command) ([]byte, error) {
	if cmd.Path == "" {
		return nil, errors.New("helper path cannot be empty")
	}
	c := exec.Command(cmd.Path, cmd.Args...)
	c.Env = cmd.Env
	var out bytes.Buffer
	c.Stdout = &out
	if e.CombineStderr {
		c.Stderr = &out
	}
	if err := c.Run(); err != nil {
		// The output of a failing helper can still carry what we need.
		return out.Bytes(), fmt.Errorf("run %s: %w", cmd, err)
	}
	return out.Bytes(), nil
}

// EditEnv returns base with the named variables removed and set appended.
// Later entries in set win.
func EditEnv(base []string, unset []string, set ...string) []string {
	drop := make(map[string]struct{}, len(unset)+len(set))
	for _, name := range unset {
		drop[name] = struct{}{}
	}
	for _, kv := range set {
		if name, _, ok := strings.Cut(kv, "="); ok {
			drop[name] = struct{}{}
		}
	}
	env := make([]string, 0, len(base)+len(set))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := drop[name]; ok {
			continue
		}
		env = append(env, kv)
	}
	return append(env, set...)
}

// Cleared returns name= assignments for every name, which blank the variables
// for the child.
func Cleared(names ...string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name + "="
	}
	return out
}
