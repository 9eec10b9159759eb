package ports

import (
	"context"

	"github.com/ghalamif/RigFlow/internal/domain"
)

// UploadResult is the satellite's acknowledgement of a document upload.
type UploadResult struct {
	Success bool
	Path    string
}

// RemoteClient is the command/control channel to a satellite host.
type RemoteClient interface {
	// UploadModel stores document at remotePath on the satellite.
	UploadModel(ctx context.Context, document []byte, remotePath string) (UploadResult, error)
	// Run executes command on the satellite and waits for it to finish.
	Run(ctx context.Context, command string) (domain.TaskResult, error)
	Close() error
}

// RemoteDialer opens command/control channels.
type RemoteDialer interface {
	Dial(endpoint string) (RemoteClient, error)
}
