package ports

import "github.com/ghalamif/RigFlow/internal/domain"

type JournalEntryID uint64

// Journal is the append-only record of a run, kept next to the session data.
type Journal interface {
	Append(e *domain.RunEvent) (JournalEntryID, error)
	Iterate(from JournalEntryID, fn func(id JournalEntryID, e *domain.RunEvent) error) error
	Sync() error
	Stats() JournalStats
	Close() error
}

type JournalStats struct {
	Entries   uint64
	LatestID  JournalEntryID
	SizeBytes int64
}
