// Package resource probes host resources the launcher checks before a run.
package resource

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ghalamif/RigFlow/internal/ports"
)

// DiskProbe reports the space available to the current user on the volume
// holding a path. Missing paths are resolved to their closest existing
// ancestor, since a rig's data directory may not exist before its first run.
type DiskProbe struct{}

func NewDiskProbe() *DiskProbe { return &DiskProbe{} }

func (DiskProbe) FreeBytes(path string) (uint64, error) {
	return freeBytes(existingAncestor(path))
}

func existingAncestor(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil || !errors.Is(err, os.ErrNotExist) {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

var _ ports.StorageProbe = (*DiskProbe)(nil)
