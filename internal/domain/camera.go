package domain

import (
	"errors"
	"fmt"
	"sort"
)

// AdcBitDepth selects the sensor ADC resolution of a Spinnaker camera.
type AdcBitDepth string

const (
	Adc8Bit  AdcBitDepth = "Adc8bit"
	Adc10Bit AdcBitDepth = "Adc10bit"
	Adc12Bit AdcBitDepth = "Adc12bit"
)

// Rect is a sensor region of interest in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VideoWriterFfmpeg encodes frames through ffmpeg. Empty argument strings let
// the acquisition app apply its own defaults.
type VideoWriterFfmpeg struct {
	VideoWriterType    string `json:"video_writer_type"`
	FrameRate          int    `json:"frame_rate"`
	ContainerExtension string `json:"container_extension"`
	OutputArguments    string `json:"output_arguments,omitempty"`
	InputArguments     string `json:"input_arguments,omitempty"`
}

// SpinnakerCamera is a FLIR camera driven by the Spinnaker SDK.
type SpinnakerCamera struct {
	DeviceType       string             `json:"device_type"`
	SerialNumber     string             `json:"serial_number"`
	Binning          int                `json:"binning"`
	Exposure         int                `json:"exposure"`
	Gain             float64            `json:"gain"`
	VideoWriter      *VideoWriterFfmpeg `json:"video_writer"`
	AdcBitDepth      AdcBitDepth        `json:"adc_bit_depth"`
	RegionOfInterest Rect               `json:"region_of_interest"`
}

// CameraController triggers a set of cameras, keyed by camera name, at a
// shared frame rate.
type CameraController struct {
	FrameRate int                        `json:"frame_rate"`
	Cameras   map[string]SpinnakerCamera `json:"cameras"`
}

// CameraNames returns the controller's camera names in lexical order.
func (c CameraController) CameraNames() []string {
	names := make([]string, 0, len(c.Cameras))
	for name := range c.Cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c CameraController) validate() error {
	if c.FrameRate <= 0 {
		return errors.New("frame_rate must be > 0")
	}
	serials := make(map[string]string, len(c.Cameras))
	for _, name := range c.CameraNames() {
		cam := c.Cameras[name]
		if cam.SerialNumber == "" {
			return fmt.Errorf("camera %s: serial_number is required", name)
		}
		if other, dup := serials[cam.SerialNumber]; dup {
			return fmt.Errorf("camera %s: serial_number %s already used by %s", name, cam.SerialNumber, other)
		}
		serials[cam.SerialNumber] = name
	}
	return nil
}
