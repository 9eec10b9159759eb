package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RigDescriptor is the common view over every rig schema the launcher handles.
// Concrete rigs are immutable once picked; they are serialized verbatim for
// the acquisition app and for archival next to the data.
type RigDescriptor interface {
	Name() string
	Computer() string
	DataDirectory() string
	SchemaName() string
	Validate() error
}

// RigBase carries the identity fields shared by every rig schema.
type RigBase struct {
	Version      string `json:"version,omitempty"`
	ComputerName string `json:"computer_name"`
	RigName      string `json:"rig_name"`
	DataDir      string `json:"data_directory"`

	// extra holds document keys the rig types do not declare.
	extra map[string]any
}

func (r RigBase) Name() string          { return r.RigName }
func (r RigBase) Computer() string      { return r.ComputerName }
func (r RigBase) DataDirectory() string { return r.DataDir }

func (r RigBase) validate() error {
	if r.RigName == "" {
		return errors.New("rig_name is required")
	}
	if r.DataDir == "" {
		return fmt.Errorf("rig %s: data_directory is required", r.RigName)
	}
	return nil
}

// NetworkConfig is an address/port pair for a ZMQ trigger or protocol channel.
type NetworkConfig struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// HarpBoard identifies a Harp device by type and serial port.
type HarpBoard struct {
	DeviceType string `json:"device_type"`
	PortName   string `json:"port_name"`
}

const (
	HarpDeviceBehavior      = "Behavior"
	HarpDeviceCuttlefishFip = "cuttlefishfip"
)

// JustFramesRig is the primary rig: triggered camera controllers, a Harp
// behavior board, and the satellites that record alongside it.
type JustFramesRig struct {
	RigBase
	TriggeredCameraController0 CameraController  `json:"triggered_camera_controller_0"`
	TriggeredCameraController1 *CameraController `json:"triggered_camera_controller_1"`
	HarpBehavior               HarpBoard         `json:"harp_behavior"`
	SatelliteRigs              []SatelliteRig    `json:"satellite_rigs"`
	ZmqTriggerConfig           NetworkConfig     `json:"zmq_trigger_config"`
}

func (r *JustFramesRig) SchemaName() string { return "AindJustFramesRig" }

func (r JustFramesRig) MarshalJSON() ([]byte, error) {
	type plain JustFramesRig
	return marshalWithUnmodeled(plain(r), r.extra)
}

func (r *JustFramesRig) UnmarshalJSON(data []byte) error {
	type plain JustFramesRig
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	extra, err := unmodeledFields(data, (*plain)(r))
	r.extra = extra
	return err
}

func (r *JustFramesRig) Validate() error {
	if err := r.RigBase.validate(); err != nil {
		return err
	}
	if err := r.TriggeredCameraController0.validate(); err != nil {
		return fmt.Errorf("rig %s: triggered_camera_controller_0: %w", r.RigName, err)
	}
	if r.TriggeredCameraController1 != nil {
		if err := r.TriggeredCameraController1.validate(); err != nil {
			return fmt.Errorf("rig %s: triggered_camera_controller_1: %w", r.RigName, err)
		}
	}
	seen := make(map[string]struct{}, len(r.SatelliteRigs))
	for i := range r.SatelliteRigs {
		sat := &r.SatelliteRigs[i]
		if err := sat.Validate(); err != nil {
			return fmt.Errorf("rig %s: satellite %d: %w", r.RigName, i, err)
		}
		if _, dup := seen[sat.RigName]; dup {
			return fmt.Errorf("rig %s: duplicate satellite rig_name %q", r.RigName, sat.RigName)
		}
		if sat.RigName == r.RigName {
			return fmt.Errorf("rig %s: satellite shares the primary rig_name", r.RigName)
		}
		seen[sat.RigName] = struct{}{}
	}
	return nil
}

// SatelliteRig records in lockstep with a primary rig and is driven over the
// command channel at ZmqProtocolConfig.Address.
type SatelliteRig struct {
	RigBase
	TriggeredCameraController0 CameraController `json:"triggered_camera_controller_0"`
	ZmqTriggerConfig           NetworkConfig    `json:"zmq_trigger_config"`
	ZmqProtocolConfig          NetworkConfig    `json:"zmq_protocol_config"`
}

func (r *SatelliteRig) SchemaName() string { return "SatelliteRig" }

func (r SatelliteRig) MarshalJSON() ([]byte, error) {
	type plain SatelliteRig
	return marshalWithUnmodeled(plain(r), r.extra)
}

func (r *SatelliteRig) UnmarshalJSON(data []byte) error {
	type plain SatelliteRig
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	extra, err := unmodeledFields(data, (*plain)(r))
	r.extra = extra
	return err
}

func (r *SatelliteRig) Validate() error {
	if err := r.RigBase.validate(); err != nil {
		return err
	}
	if r.ZmqProtocolConfig.Address == "" {
		return fmt.Errorf("satellite %s: zmq_protocol_config.address is required", r.RigName)
	}
	return r.TriggeredCameraController0.validate()
}

var (
	_ RigDescriptor = (*JustFramesRig)(nil)
	_ RigDescriptor = (*SatelliteRig)(nil)
)
