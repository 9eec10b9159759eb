package ports

import (
	"context"

	"github.com/ghalamif/RigFlow/internal/domain"
)

// Task is one unit of launched work. Run blocks until the underlying process
// exits; failures to start are reported through the result, not as an error.
type Task interface {
	Run(ctx context.Context) domain.TaskResult
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) domain.TaskResult

func (f TaskFunc) Run(ctx context.Context) domain.TaskResult { return f(ctx) }

// AppLauncher builds acquisition app launches.
type AppLauncher interface {
	// Local prepares an app run on this machine against rig and session.
	Local(app domain.AppSpec, rig domain.RigDescriptor, session *domain.Session) (Task, error)
	// RemoteCommand renders the command line a satellite host executes. The
	// paths are where the satellite stored the uploaded documents.
	RemoteCommand(app domain.AppSpec, rigPath, sessionPath string) string
}
