package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// RigTask is one entry of the ordered (rig id, task) list a phase launches.
type RigTask struct {
	RigID string
	Task  ports.Task
}

type RigResult struct {
	RigID  string
	Result domain.TaskResult
}

// LaunchAll starts every task together and waits for all of them. A failing
// task does not cancel its siblings. Results are in task order.
func LaunchAll(ctx context.Context, tasks []RigTask, obs ports.Observability) []RigResult {
	results := make([]RigResult, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t RigTask) {
			defer wg.Done()
			obs.AddGauge(ports.MetricTasksInFlight, 1)
			res := t.Task.Run(ctx)
			obs.AddGauge(ports.MetricTasksInFlight, -1)
			obs.ObserveLatency(ports.MetricTaskDuration, res.Duration().Seconds())
			results[i] = RigResult{RigID: t.RigID, Result: res}
		}(i, t)
	}
	wg.Wait()
	return results
}

// ReportAcquisition logs every result keyed by rig and returns how many
// failed. A non-zero exit is a data-quality problem, not a pipeline error.
func ReportAcquisition(results []RigResult, obs ports.Observability) int {
	failed := 0
	for _, r := range results {
		if !r.Result.OK() {
			failed++
			obs.LogError("app_failed", fmt.Errorf("exit code %d", r.Result.ExitCode),
				ports.F("rig_id", r.RigID),
				ports.F("exit_code", r.Result.ExitCode),
				ports.F("stdout", r.Result.Stdout),
				ports.F("stderr", r.Result.Stderr),
			)
			obs.IncCounter(ports.MetricAcquisitionFailed, 1)
			continue
		}
		obs.LogInfo("app_completed", ports.F("rig_id", r.RigID), ports.F("stdout", r.Result.Stdout))
		obs.LogDebug("app_completed_stderr", ports.F("rig_id", r.RigID), ports.F("stderr", r.Result.Stderr))
		obs.IncCounter(ports.MetricAcquisitionSucceeded, 1)
	}
	return failed
}

// ReportTransfers logs copy outcomes and returns how many failed.
func ReportTransfers(results []RigResult, obs ports.Observability) int {
	failed := 0
	for _, r := range results {
		if !r.Result.OK() {
			failed++
			obs.LogError("transfer_failed", fmt.Errorf("exit code %d", r.Result.ExitCode),
				ports.F("rig_id", r.RigID),
				ports.F("exit_code", r.Result.ExitCode),
				ports.F("stdout", r.Result.Stdout),
				ports.F("stderr", r.Result.Stderr),
			)
			obs.IncCounter(ports.MetricTransferFailed, 1)
			continue
		}
		obs.LogInfo("transfer_completed", ports.F("rig_id", r.RigID))
		obs.LogDebug("transfer_output", ports.F("rig_id", r.RigID), ports.F("stdout", r.Result.Stdout))
	}
	return failed
}
