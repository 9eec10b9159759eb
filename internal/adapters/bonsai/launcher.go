package bonsai

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

// Launcher builds Bonsai apps for the pipeline. Documents for local runs are
// written under DocumentDir.
type Launcher struct {
	DocumentDir string
	WorkingDir  string
}

func NewLauncher(documentDir string) *Launcher {
	return &Launcher{DocumentDir: documentDir}
}

// Local serializes rig and session into DocumentDir and points the workflow
// at them through RigPath and SessionPath.
func (l *Launcher) Local(app domain.AppSpec, rig domain.RigDescriptor, session *domain.Session) (ports.Task, error) {
	sessionName, err := session.Name()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(l.DocumentDir, sessionName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}

	rigPath, err := writeDocument(dir, rig.Name()+"_"+domain.SchemaFileName(rig), rig)
	if err != nil {
		return nil, err
	}
	sessionPath, err := writeDocument(dir, domain.SchemaFileName(session), session)
	if err != nil {
		return nil, err
	}

	return &App{
		Executable: app.Executable,
		Workflow:   app.Workflow,
		WorkingDir: l.WorkingDir,
		Properties: map[string]string{
			PropertyRigPath:     rigPath,
			PropertySessionPath: sessionPath,
		},
	}, nil
}

func (l *Launcher) RemoteCommand(app domain.AppSpec, rigPath, sessionPath string) string {
	a := &App{
		Executable: app.Executable,
		Workflow:   app.Workflow,
		Properties: map[string]string{
			PropertyRigPath:     rigPath,
			PropertySessionPath: sessionPath,
		},
	}
	return a.Command()
}

func writeDocument(dir, name string, doc any) (string, error) {
	data, err := domain.MarshalDocument(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

var _ ports.AppLauncher = (*Launcher)(nil)
