package rigflow

import (
	"os"
	"path/filepath"

	"github.com/ghalamif/RigFlow/internal/adapters/journal"
	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// ReadJournal replays the run events recorded in the journal file at path,
// oldest first. A directory is read as the default journal file inside it.
// The file is only read, so a journal a run is still writing is left intact.
func ReadJournal(path string, fn func(RunEvent) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		path = filepath.Join(path, journal.DefaultFileName)
	}
	return journal.Replay(path, 0, func(_ ports.JournalEntryID, e *domain.RunEvent) error {
		return fn(*e)
	})
}
