package ports

import "github.com/ghalamif/RigFlow/internal/domain"

// RigPicker selects a rig document and decodes it into rig.
type RigPicker interface {
	PickRig(rig domain.RigDescriptor) error
}
