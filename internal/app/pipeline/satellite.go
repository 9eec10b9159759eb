package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

var ErrUploadRejected = errors.New("satellite rejected document upload")

// UploadRejectedError names the satellite and document whose upload was not
// acknowledged. It matches ErrUploadRejected.
type UploadRejectedError struct {
	Rig        string
	RemotePath string
}

func (e *UploadRejectedError) Error() string {
	return fmt.Sprintf("satellite %s rejected upload of %s", e.Rig, e.RemotePath)
}

func (e *UploadRejectedError) Is(target error) bool { return target == ErrUploadRejected }

// SatelliteSetupError ties a setup failure (dial, transport or rejected
// upload) to the satellite it happened on.
type SatelliteSetupError struct {
	Rig string
	Err error
}

func (e *SatelliteSetupError) Error() string { return e.Err.Error() }

func (e *SatelliteSetupError) Unwrap() error { return e.Err }

// SatelliteConnection is the per-run link to one satellite: its rig, its
// command channel and the acquisition command it will execute.
type SatelliteConnection struct {
	Rig         *domain.SatelliteRig
	Client      ports.RemoteClient
	Command     string
	SessionPath string
	RigPath     string
}

// Task runs the acquisition command on the satellite.
func (c *SatelliteConnection) Task() ports.Task {
	return remoteTask(c.Client, c.Command)
}

// SatelliteSetup holds what connecting a satellite needs.
type SatelliteSetup struct {
	Dialer   ports.RemoteDialer
	Launcher ports.AppLauncher
	App      domain.AppSpec
	// UploadRoot is the satellite-side directory documents are uploaded to.
	UploadRoot string
	Obs        ports.Observability
}

// Connect dials sat, uploads the session and rig documents and renders the
// acquisition command around the paths the satellite acknowledged. Either
// upload not succeeding is fatal for the run.
func (s SatelliteSetup) Connect(ctx context.Context, sat *domain.SatelliteRig, session *domain.Session) (*SatelliteConnection, error) {
	sessionName, err := session.Name()
	if err != nil {
		return nil, err
	}
	client, err := s.Dialer.Dial(sat.ZmqProtocolConfig.Address)
	if err != nil {
		return nil, fmt.Errorf("satellite %s: %w", sat.RigName, err)
	}

	root := s.UploadRoot
	if root == "" {
		root = "."
	}
	sessionPath, err := upload(ctx, client, sat.RigName, session, joinPath(root, domain.SessionFileName(sessionName)))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	rigPath, err := upload(ctx, client, sat.RigName, sat, joinPath(root, domain.RigFileName(sessionName)))
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	s.Obs.LogInfo("satellite_ready",
		ports.F("rig_id", sat.RigName),
		ports.F("session_path", sessionPath),
		ports.F("rig_path", rigPath),
	)
	s.Obs.IncCounter(ports.MetricSatellitesReady, 1)

	return &SatelliteConnection{
		Rig:         sat,
		Client:      client,
		Command:     s.Launcher.RemoteCommand(s.App, rigPath, sessionPath),
		SessionPath: sessionPath,
		RigPath:     rigPath,
	}, nil
}

func upload(ctx context.Context, client ports.RemoteClient, rigName string, doc any, remotePath string) (string, error) {
	data, err := domain.MarshalDocument(doc)
	if err != nil {
		return "", err
	}
	res, err := client.UploadModel(ctx, data, remotePath)
	if err != nil {
		return "", fmt.Errorf("satellite %s: upload %s: %w", rigName, remotePath, err)
	}
	if !res.Success {
		return "", &UploadRejectedError{Rig: rigName, RemotePath: remotePath}
	}
	if res.Path == "" {
		return remotePath, nil
	}
	return res.Path, nil
}

// SetupSatellites connects every satellite in order, one at a time. The first
// failure closes the connections already made and is returned as a
// *SatelliteSetupError; no connections are returned with it.
func SetupSatellites(ctx context.Context, setup SatelliteSetup, sats []domain.SatelliteRig, session *domain.Session) ([]*SatelliteConnection, error) {
	conns := make([]*SatelliteConnection, 0, len(sats))
	for i := range sats {
		conn, err := setup.Connect(ctx, &sats[i], session)
		if err != nil {
			CloseConnections(conns)
			setup.Obs.LogCritical("satellite_setup_failed", err, ports.F("rig_id", sats[i].RigName))
			return nil, &SatelliteSetupError{Rig: sats[i].RigName, Err: err}
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

func CloseConnections(conns []*SatelliteConnection) error {
	var errs []error
	for _, c := range conns {
		if err := c.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.Rig.RigName, err))
		}
	}
	return errors.Join(errs...)
}

func remoteTask(client ports.RemoteClient, command string) ports.Task {
	return ports.TaskFunc(func(ctx context.Context) domain.TaskResult {
		started := time.Now()
		res, err := client.Run(ctx, command)
		if err != nil {
			return domain.FailedResult(err, started)
		}
		return res
	})
}
