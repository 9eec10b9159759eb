package ports

import "github.com/ghalamif/RigFlow/internal/domain"

// Copier moves acquired data to central storage.
type Copier interface {
	// Task copies routes from this machine.
	Task(routes []domain.CopyRoute) Task
	// Command renders the copy of routes as a command line for a satellite.
	Command(routes []domain.CopyRoute) string
	// Classify maps the copy tool's exit status onto the zero/non-zero
	// convention used by every other task.
	Classify(res domain.TaskResult) domain.TaskResult
}
