package rigflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/RigFlow/internal/adapters/library"
	"github.com/ghalamif/RigFlow/internal/domain"
)

// DefaultPathSeed is where WriteMocks puts documents; {schema} is replaced
// by each document's schema name.
const DefaultPathSeed = "./local/{schema}.json"

const (
	mockExposure  = 4000
	mockGainMain  = 10
	mockGainSlave = 14
	mockFrameRate = 200
)

func mockCamera(serial string, gain float64) domain.SpinnakerCamera {
	return domain.SpinnakerCamera{
		DeviceType:   "SpinnakerCamera",
		SerialNumber: serial,
		Binning:      1,
		Exposure:     mockExposure,
		Gain:         gain,
		VideoWriter: &domain.VideoWriterFfmpeg{
			VideoWriterType:    "FFMPEG",
			FrameRate:          mockFrameRate,
			ContainerExtension: "mp4",
		},
		AdcBitDepth:      domain.Adc10Bit,
		RegionOfInterest: domain.Rect{X: 120, Y: 140, Width: 1200, Height: 800},
	}
}

func mockController(gain float64, cameras map[string]string) domain.CameraController {
	c := domain.CameraController{FrameRate: mockFrameRate, Cameras: make(map[string]domain.SpinnakerCamera, len(cameras))}
	for name, serial := range cameras {
		c.Cameras[name] = mockCamera(serial, gain)
	}
	return c
}

// MockSession is an example session dated now.
func MockSession(now time.Time) *Session {
	return &domain.Session{
		Experiment:     "MotorObservatory+Fip",
		Experimenter:   []string{"kenta.hagihara", "bruno.cruz"},
		Date:           now.UTC(),
		Subject:        "809487",
		Notes:          "Left Hemisphere",
		AllowDirtyRepo: true,
	}
}

// MockSatellite is an example satellite rig with five cameras.
func MockSatellite() *SatelliteRig {
	return &domain.SatelliteRig{
		RigBase: domain.RigBase{ComputerName: "W10DT714079", RigName: "satelite_rig", DataDir: "C:/Data"},
		TriggeredCameraController0: mockController(mockGainSlave, map[string]string{
			"Camera7":  "23373894",
			"Camera8":  "23373899",
			"Camera9":  "23373898",
			"Camera10": "23354678",
			"Camera11": "23378574",
		}),
		ZmqTriggerConfig:  domain.NetworkConfig{Address: "10.128.49.106", Port: 5555},
		ZmqProtocolConfig: domain.NetworkConfig{Address: "10.128.49.154", Port: 5556},
	}
}

// MockRig is an example primary rig with seven cameras and one satellite.
func MockRig() *JustFramesRig {
	return &domain.JustFramesRig{
		RigBase: domain.RigBase{ComputerName: "W10DT714163", RigName: "MotorObservatory0000", DataDir: "D:/Data"},
		TriggeredCameraController0: mockController(mockGainMain, map[string]string{
			"Camera0": "23382593",
			"Camera1": "23382581",
			"Camera2": "23113712",
			"Camera3": "23381088",
			"Camera4": "20519746",
			"Camera5": "23382592",
			"Camera6": "23381091",
		}),
		HarpBehavior:     domain.HarpBoard{DeviceType: domain.HarpDeviceBehavior, PortName: "COM3"},
		SatelliteRigs:    []domain.SatelliteRig{*MockSatellite()},
		ZmqTriggerConfig: domain.NetworkConfig{Address: "10.128.49.106", Port: 5555},
	}
}

// MockFipRig is an example fiber photometry rig.
func MockFipRig() *FipRig {
	return &domain.FipRig{
		RigBase:        domain.RigBase{ComputerName: "W10DT714163", RigName: "MOT.01", DataDir: "D:/data"},
		CameraGreenIso: domain.FipCamera{SerialNumber: "24521422", Offset: domain.Point2f{X: 104, Y: 56}},
		CameraRed:      domain.FipCamera{SerialNumber: "24521414", Offset: domain.Point2f{X: 104, Y: 56}},
		LightSourceBlue: domain.LightSource{
			Power:       10,
			Calibration: &domain.LightSourceCalibration{PowerLut: domain.PowerLUT{0: 0, 0.1: 10, 0.2: 20, 0.4: 40}},
			Task:        domain.FipTask{CameraPort: domain.PortIO0, LightSourcePort: domain.PortIO2},
		},
		LightSourceLime: domain.LightSource{
			Power:       20,
			Calibration: &domain.LightSourceCalibration{PowerLut: domain.PowerLUT{0: 0, 0.1: 4, 0.2: 7.5, 0.4: 15, 0.6: 35}},
			Task:        domain.FipTask{CameraPort: domain.PortIO1, LightSourcePort: domain.PortIO4},
		},
		LightSourceUv: domain.LightSource{
			Power:       0.1,
			Calibration: &domain.LightSourceCalibration{PowerLut: domain.PowerLUT{0: 0, 0.1: 10, 0.2: 20}},
			Task:        domain.FipTask{CameraPort: domain.PortIO0, LightSourcePort: domain.PortIO3},
		},
		RoiSettings:   &domain.RoiSettings{},
		Networking:    domain.Networking{ZmqPublisher: domain.NetworkConfig{Address: "localhost", Port: 5556}},
		CuttlefishFip: domain.HarpBoard{DeviceType: domain.HarpDeviceCuttlefishFip, PortName: "COM5"},
	}
}

// WriteMocks writes the example session and rigs using pathSeed and returns
// the files written.
func WriteMocks(pathSeed string, now time.Time) ([]string, error) {
	if pathSeed == "" {
		pathSeed = DefaultPathSeed
	}
	if !strings.Contains(pathSeed, "{schema}") {
		return nil, fmt.Errorf("path seed %q has no {schema} placeholder", pathSeed)
	}
	docs := []domain.Document{MockSession(now), MockRig(), MockSatellite(), MockFipRig()}
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		path := strings.ReplaceAll(pathSeed, "{schema}", doc.SchemaName())
		if err := library.WriteDocument(path, doc); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
