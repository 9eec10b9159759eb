// Package robocopy copies session data to central storage with robocopy, on
// the primary host or rendered as a command for a satellite.
package robocopy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

const (
	DefaultExecutable = "robocopy"
	DefaultExtraArgs  = "/E /DCOPY:DAT /R:100 /W:3 /tee"

	// Robocopy exit codes are a bit field; 8 and above mean at least one
	// file or directory failed to copy.
	failureThreshold = 8
)

type Settings struct {
	Executable string
	ExtraArgs  string
	// LogPath appends robocopy's own log to this file when set.
	LogPath string
	// DeleteSource moves files instead of copying them.
	DeleteSource bool
	// Overwrite copies files even when the destination looks identical.
	Overwrite bool
	// Env is appended to the current environment for local runs.
	Env []string
}

// Copier implements ports.Copier with robocopy.
type Copier struct {
	settings Settings
}

func New(settings Settings) *Copier {
	if settings.Executable == "" {
		settings.Executable = DefaultExecutable
	}
	if strings.TrimSpace(settings.ExtraArgs) == "" {
		settings.ExtraArgs = DefaultExtraArgs
	}
	return &Copier{settings: settings}
}

// Args returns the robocopy arguments for one route.
func (c *Copier) Args(route domain.CopyRoute) []string {
	args := []string{route.Source, route.Destination}
	args = append(args, strings.Fields(c.settings.ExtraArgs)...)
	if c.settings.LogPath != "" {
		args = append(args, "/LOG+:"+c.settings.LogPath)
	}
	if c.settings.DeleteSource {
		args = append(args, "/MOV")
	}
	if c.settings.Overwrite {
		args = append(args, "/IS", "/IT")
	}
	return args
}

// Command renders routes as one shell line. Routes are chained with "&" so a
// failed route does not skip the ones after it; the line's exit status is the
// last route's, so callers that need every status render one route per call.
func (c *Copier) Command(routes []domain.CopyRoute) string {
	parts := make([]string, 0, len(routes))
	for _, r := range routes {
		args := c.Args(r)
		var b strings.Builder
		fmt.Fprintf(&b, `%s "%s" "%s"`, c.settings.Executable, args[0], args[1])
		for _, a := range args[2:] {
			if strings.ContainsAny(a, " \t") {
				fmt.Fprintf(&b, ` "%s"`, a)
				continue
			}
			b.WriteString(" ")
			b.WriteString(a)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " & ")
}

// Task copies routes one after the other. Every route is attempted; the
// result carries the worst exit code seen.
func (c *Copier) Task(routes []domain.CopyRoute) ports.Task {
	return ports.TaskFunc(func(ctx context.Context) domain.TaskResult {
		started := time.Now()
		var stdout, stderr bytes.Buffer
		worst := 0
		for _, r := range routes {
			if err := ctx.Err(); err != nil {
				return domain.FailedResult(err, started)
			}
			code := c.runRoute(ctx, r, &stdout, &stderr)
			if severity(code) > severity(worst) {
				worst = code
			}
		}
		return c.Classify(domain.TaskResult{
			ExitCode:   worst,
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			StartedAt:  started,
			FinishedAt: time.Now(),
		})
	})
}

func (c *Copier) runRoute(ctx context.Context, r domain.CopyRoute, stdout, stderr *bytes.Buffer) int {
	cmd := exec.CommandContext(ctx, c.settings.Executable, c.Args(r)...)
	if len(c.settings.Env) > 0 {
		cmd.Env = append(os.Environ(), c.settings.Env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	fmt.Fprintf(stderr, "%s -> %s: %v\n", r.Source, r.Destination, err)
	return domain.ExitCodeNotStarted
}

// Classify folds robocopy's informational codes (1-7) into success.
func (c *Copier) Classify(res domain.TaskResult) domain.TaskResult {
	if res.ExitCode > 0 && res.ExitCode < failureThreshold {
		res.ExitCode = 0
	}
	return res
}

// severity orders exit codes so launch failures outrank copy failures and
// copy failures outrank informational codes.
func severity(code int) int {
	switch {
	case code < 0:
		return 1 << 30
	default:
		return code
	}
}

var _ ports.Copier = (*Copier)(nil)
