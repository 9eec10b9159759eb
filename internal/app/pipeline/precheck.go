package pipeline

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/ghalamif/RigFlow/internal/ports"
)

// DefaultMinFreeBytes is the free space required on the primary rig's data
// volume before a run starts.
const DefaultMinFreeBytes uint64 = 200_000_000_000

var ErrInsufficientStorage = errors.New("insufficient storage")

// CheckStorage fails when the volume holding dataDir has less than minFree
// bytes available. It is evaluated once, before anything is launched.
func CheckStorage(probe ports.StorageProbe, dataDir string, minFree uint64, obs ports.Observability) error {
	if minFree == 0 {
		minFree = DefaultMinFreeBytes
	}
	free, err := probe.FreeBytes(dataDir)
	if err != nil {
		return fmt.Errorf("probe free space on %s: %w", dataDir, err)
	}
	obs.SetGauge(ports.MetricFreeStorageBytes, float64(free))

	if free < minFree {
		err := fmt.Errorf("%w: %s has %s free, %s required",
			ErrInsufficientStorage, dataDir, humanize.Bytes(free), humanize.Bytes(minFree))
		obs.LogCritical("storage_check_failed", err, ports.F("path", dataDir))
		return err
	}
	obs.LogInfo("storage_check_passed",
		ports.F("path", dataDir),
		ports.F("free", humanize.Bytes(free)),
		ports.F("required", humanize.Bytes(minFree)),
	)
	return nil
}
