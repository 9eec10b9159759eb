// Package library reads rig documents from a config library laid out as
// <root>/Rig/<computer>/<name>.json.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

const rigDir = "Rig"

var ErrNoRigDocument = errors.New("no rig document in library")

// Picker selects rig documents without prompting. With RigFile unset the
// computer's directory must hold exactly one document.
type Picker struct {
	Root     string
	Computer string
	RigFile  string
}

// NewPicker returns a picker for the local computer's rig directory.
func NewPicker(root, rigFile string) (*Picker, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve computer name: %w", err)
	}
	return &Picker{Root: root, Computer: host, RigFile: rigFile}, nil
}

func (p *Picker) RigDirectory() string {
	return filepath.Join(p.Root, rigDir, p.Computer)
}

func (p *Picker) PickRig(rig domain.RigDescriptor) error {
	path, err := p.rigPath()
	if err != nil {
		return err
	}
	if err := ReadDocument(path, rig); err != nil {
		return err
	}
	if err := rig.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (p *Picker) rigPath() (string, error) {
	dir := p.RigDirectory()
	if p.RigFile != "" {
		name := p.RigFile
		if filepath.Ext(name) == "" {
			name += ".json"
		}
		if filepath.IsAbs(name) {
			return name, nil
		}
		return filepath.Join(dir, name), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read rig library: %w", err)
	}
	var candidates []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			candidates = append(candidates, e.Name())
		}
	}
	sort.Strings(candidates)
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNoRigDocument, dir)
	case 1:
		return filepath.Join(dir, candidates[0]), nil
	default:
		return "", fmt.Errorf("%d rig documents in %s (%s), choose one", len(candidates), dir, strings.Join(candidates, ", "))
	}
}

// ReadDocument decodes the document at path into doc.
func ReadDocument(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := domain.UnmarshalDocument(data, doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// WriteDocument writes doc to path, creating parent directories.
func WriteDocument(path string, doc any) error {
	data, err := domain.MarshalDocument(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ ports.RigPicker = (*Picker)(nil)
