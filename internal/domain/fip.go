package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Port is a digital output line on the cuttlefish FIP board.
type Port string

const (
	PortIO0 Port = "IO0"
	PortIO1 Port = "IO1"
	PortIO2 Port = "IO2"
	PortIO3 Port = "IO3"
	PortIO4 Port = "IO4"
	PortIO5 Port = "IO5"
	PortIO6 Port = "IO6"
	PortIO7 Port = "IO7"
)

type Point2f struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Circle struct {
	Center Point2f `json:"center"`
	Radius float64 `json:"radius"`
}

type FipCamera struct {
	SerialNumber string  `json:"serial_number"`
	Gain         float64 `json:"gain"`
	Offset       Point2f `json:"offset"`
}

// PowerLUT maps a normalized drive setting to measured output power. JSON
// object keys are the settings formatted as decimal strings.
type PowerLUT map[float64]float64

func (l PowerLUT) MarshalJSON() ([]byte, error) {
	keys := l.settings()
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		out[formatSetting(k)] = l[k]
	}
	return json.Marshal(out)
}

func (l *PowerLUT) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(PowerLUT, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("power_lut key %q: %w", k, err)
		}
		out[f] = v
	}
	*l = out
	return nil
}

// Power interpolates linearly between the two settings bracketing setting.
// Settings outside the table clamp to the nearest entry.
func (l PowerLUT) Power(setting float64) (float64, error) {
	keys := l.settings()
	if len(keys) == 0 {
		return 0, errors.New("power_lut is empty")
	}
	if setting <= keys[0] {
		return l[keys[0]], nil
	}
	last := keys[len(keys)-1]
	if setting >= last {
		return l[last], nil
	}
	i := sort.SearchFloat64s(keys, setting)
	lo, hi := keys[i-1], keys[i]
	frac := (setting - lo) / (hi - lo)
	return l[lo] + frac*(l[hi]-l[lo]), nil
}

func (l PowerLUT) settings() []float64 {
	keys := make([]float64, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}

func formatSetting(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}

type LightSourceCalibration struct {
	PowerLut PowerLUT `json:"power_lut"`
}

// FipTask pairs the camera exposure line with the light source it gates.
type FipTask struct {
	CameraPort      Port `json:"camera_port"`
	LightSourcePort Port `json:"light_source_port"`
}

type LightSource struct {
	Power       float64                 `json:"power"`
	Calibration *LightSourceCalibration `json:"calibration"`
	Task        FipTask                 `json:"task"`
}

func (l LightSource) validate() error {
	if l.Power < 0 {
		return errors.New("power must be >= 0")
	}
	if l.Task.CameraPort == "" || l.Task.LightSourcePort == "" {
		return errors.New("task ports are required")
	}
	if l.Task.CameraPort == l.Task.LightSourcePort {
		return fmt.Errorf("camera and light source share port %s", l.Task.CameraPort)
	}
	if l.Calibration != nil {
		for setting, power := range l.Calibration.PowerLut {
			if setting < 0 || power < 0 {
				return fmt.Errorf("power_lut entry %v: %v must be non-negative", setting, power)
			}
		}
	}
	return nil
}

type RoiSettings struct {
	CameraGreenIsoBackground Circle   `json:"camera_green_iso_background"`
	CameraRedBackground      Circle   `json:"camera_red_background"`
	CameraGreenIsoRoi        []Circle `json:"camera_green_iso_roi"`
	CameraRedRoi             []Circle `json:"camera_red_roi"`
}

type Networking struct {
	ZmqPublisher NetworkConfig `json:"zmq_publisher"`
}

// FipRig is a fiber photometry rig: two cameras, three time-multiplexed
// light sources, and a cuttlefish Harp board sequencing them.
type FipRig struct {
	RigBase
	CameraGreenIso  FipCamera    `json:"camera_green_iso"`
	CameraRed       FipCamera    `json:"camera_red"`
	LightSourceUv   LightSource  `json:"light_source_uv"`
	LightSourceBlue LightSource  `json:"light_source_blue"`
	LightSourceLime LightSource  `json:"light_source_lime"`
	RoiSettings     *RoiSettings `json:"roi_settings"`
	Networking      Networking   `json:"networking"`
	CuttlefishFip   HarpBoard    `json:"cuttlefish_fip"`
}

func (r *FipRig) SchemaName() string { return "AindPhysioFipRig" }

func (r FipRig) MarshalJSON() ([]byte, error) {
	type plain FipRig
	return marshalWithUnmodeled(plain(r), r.extra)
}

func (r *FipRig) UnmarshalJSON(data []byte) error {
	type plain FipRig
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	extra, err := unmodeledFields(data, (*plain)(r))
	r.extra = extra
	return err
}

func (r *FipRig) Validate() error {
	if err := r.RigBase.validate(); err != nil {
		return err
	}
	if r.CameraGreenIso.SerialNumber == "" || r.CameraRed.SerialNumber == "" {
		return fmt.Errorf("rig %s: both FIP cameras need a serial_number", r.RigName)
	}
	sources := map[string]LightSource{
		"light_source_uv":   r.LightSourceUv,
		"light_source_blue": r.LightSourceBlue,
		"light_source_lime": r.LightSourceLime,
	}
	used := make(map[Port]string, len(sources))
	for _, name := range []string{"light_source_uv", "light_source_blue", "light_source_lime"} {
		src := sources[name]
		if err := src.validate(); err != nil {
			return fmt.Errorf("rig %s: %s: %w", r.RigName, name, err)
		}
		if other, dup := used[src.Task.LightSourcePort]; dup {
			return fmt.Errorf("rig %s: %s reuses light source port %s of %s", r.RigName, name, src.Task.LightSourcePort, other)
		}
		used[src.Task.LightSourcePort] = name
	}
	return nil
}

var _ RigDescriptor = (*FipRig)(nil)
