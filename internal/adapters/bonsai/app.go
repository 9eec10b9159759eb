// Package bonsai launches Bonsai workflows, the acquisition apps that run on
// every rig.
package bonsai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
)

// Externalized property names the acquisition workflows read their documents
// from.
const (
	PropertyRigPath     = "RigPath"
	PropertySessionPath = "SessionPath"
)

// App is one Bonsai workflow invocation.
type App struct {
	Executable string
	Workflow   string
	// Properties are passed as -p:Name=Value externalized properties.
	Properties map[string]string
	WorkingDir string
	// Env is appended to the current environment.
	Env []string
}

// Args returns the executable's arguments.
func (a *App) Args() []string {
	args := []string{a.Workflow, "--no-editor"}
	for _, key := range a.propertyKeys() {
		args = append(args, fmt.Sprintf("-p:%s=%s", key, a.Properties[key]))
	}
	return args
}

// Command renders the invocation as a single command line for a remote shell.
// Values are wrapped in double quotes verbatim; Windows paths keep their
// backslashes.
func (a *App) Command() string {
	var b strings.Builder
	fmt.Fprintf(&b, `"%s" "%s" --no-editor`, a.Executable, a.Workflow)
	for _, key := range a.propertyKeys() {
		fmt.Fprintf(&b, ` -p:"%s"="%s"`, key, a.Properties[key])
	}
	return b.String()
}

func (a *App) propertyKeys() []string {
	keys := make([]string, 0, len(a.Properties))
	for k := range a.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run starts the workflow and waits for it, capturing stdout and stderr.
func (a *App) Run(ctx context.Context) domain.TaskResult {
	started := time.Now()

	cmd := exec.CommandContext(ctx, a.Executable, a.Args()...)
	cmd.Dir = a.WorkingDir
	if len(a.Env) > 0 {
		cmd.Env = append(os.Environ(), a.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := domain.TaskResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res
	}
	res.ExitCode = domain.ExitCodeNotStarted
	if res.Stderr != "" {
		res.Stderr += "\n"
	}
	res.Stderr += err.Error()
	return res
}
