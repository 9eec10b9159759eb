package ports

import "github.com/ghalamif/RigFlow/internal/domain"

// Ledger receives run events for long-term bookkeeping.
type Ledger interface {
	WriteBatch(events []*domain.RunEvent) error
	Name() string
}
