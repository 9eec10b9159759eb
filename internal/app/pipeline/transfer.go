package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// Session subdirectories with transfer rules of their own.
const (
	VideosDir     = "behavior-videos"
	BehaviorDir   = "behavior"
	SatellitesDir = "satellites"
)

// TransferPlan is the copy work for one rig. Satellite plans run on the
// satellite itself.
type TransferPlan struct {
	RigID     string
	Routes    []domain.CopyRoute
	Satellite bool
}

// SessionDestination is <root>/<subject>/<session>.
func SessionDestination(root string, session *domain.Session) (string, error) {
	name, err := session.Name()
	if err != nil {
		return "", err
	}
	return joinPath(root, session.Subject, name), nil
}

// PlanPrimary copies the primary rig's whole session directory.
func PlanPrimary(rig domain.RigDescriptor, sessionName, dest string) TransferPlan {
	return TransferPlan{
		RigID: rig.Name(),
		Routes: []domain.CopyRoute{{
			Source:      joinPath(rig.DataDirectory(), sessionName),
			Destination: dest,
		}},
	}
}

// PlanSatellite splits a satellite's session directory: videos are flattened
// into the shared video directory, everything else lands under a directory
// named after the satellite.
func PlanSatellite(sat *domain.SatelliteRig, sessionName, dest string) TransferPlan {
	src := joinPath(sat.DataDirectory(), sessionName)
	return TransferPlan{
		RigID:     sat.RigName,
		Satellite: true,
		Routes: []domain.CopyRoute{
			{
				Source:      joinPath(src, VideosDir),
				Destination: joinPath(dest, VideosDir),
			},
			{
				Source:      joinPath(src, BehaviorDir),
				Destination: joinPath(dest, BehaviorDir, SatellitesDir, sat.RigName),
			},
		},
	}
}

// PlanTransfers returns one plan per rig: satellites in order, then the
// primary.
func PlanTransfers(rig *domain.JustFramesRig, session *domain.Session, root string) ([]TransferPlan, error) {
	dest, err := SessionDestination(root, session)
	if err != nil {
		return nil, err
	}
	plans := make([]TransferPlan, 0, len(rig.SatelliteRigs)+1)
	for i := range rig.SatelliteRigs {
		plans = append(plans, PlanSatellite(&rig.SatelliteRigs[i], session.SessionName, dest))
	}
	return append(plans, PlanPrimary(rig, session.SessionName, dest)), nil
}

// TransferTasks turns plans into launchable tasks. Satellite plans are sent
// as one command over the satellite's connection.
func TransferTasks(plans []TransferPlan, copier ports.Copier, conns []*SatelliteConnection) []RigTask {
	byRig := make(map[string]ports.RemoteClient, len(conns))
	for _, c := range conns {
		byRig[c.Rig.RigName] = c.Client
	}

	tasks := make([]RigTask, 0, len(plans))
	for _, p := range plans {
		if !p.Satellite {
			tasks = append(tasks, RigTask{RigID: p.RigID, Task: copier.Task(p.Routes)})
			continue
		}
		client, ok := byRig[p.RigID]
		if !ok {
			tasks = append(tasks, RigTask{RigID: p.RigID, Task: failedTask(fmt.Errorf("satellite %s: no connection", p.RigID))})
			continue
		}
		tasks = append(tasks, RigTask{RigID: p.RigID, Task: remoteCopyTask(client, copier, p.Routes)})
	}
	return tasks
}

// remoteCopyTask runs each route as its own command on the satellite, so a
// failed route is not hidden behind a later one that succeeded. Every route
// is attempted and the worst classified result is reported.
func remoteCopyTask(client ports.RemoteClient, copier ports.Copier, routes []domain.CopyRoute) ports.Task {
	return ports.TaskFunc(func(ctx context.Context) domain.TaskResult {
		started := time.Now()
		var stdout, stderr strings.Builder
		worst := 0
		for _, r := range routes {
			res := copier.Classify(remoteTask(client, copier.Command([]domain.CopyRoute{r})).Run(ctx))
			stdout.WriteString(res.Stdout)
			stderr.WriteString(res.Stderr)
			if worse(res.ExitCode, worst) {
				worst = res.ExitCode
			}
		}
		return domain.TaskResult{
			ExitCode:   worst,
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
	})
}

// worse ranks a task that never ran above any copy failure.
func worse(code, than int) bool {
	switch {
	case than < 0:
		return false
	case code < 0:
		return true
	default:
		return code > than
	}
}

// joinPath joins path elements with the separator base already uses, so
// Windows rig paths stay Windows paths whatever host plans the copy.
func joinPath(base string, elems ...string) string {
	sep := "/"
	if strings.Contains(base, `\`) && !strings.Contains(base, "/") {
		sep = `\`
	}
	parts := make([]string, 0, len(elems)+1)
	if base != "" {
		parts = append(parts, strings.TrimRight(base, `/\`))
	}
	for _, e := range elems {
		parts = append(parts, strings.Trim(e, `/\`))
	}
	return strings.Join(parts, sep)
}

func failedTask(err error) ports.Task {
	return ports.TaskFunc(func(context.Context) domain.TaskResult {
		return domain.FailedResult(err, time.Now())
	})
}
