package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testCamera(serial string) SpinnakerCamera {
	return SpinnakerCamera{
		DeviceType:   "SpinnakerCamera",
		SerialNumber: serial,
		Binning:      1,
		Exposure:     4000,
		Gain:         10,
		VideoWriter: &VideoWriterFfmpeg{
			VideoWriterType:    "FFMPEG",
			FrameRate:          200,
			ContainerExtension: "mp4",
		},
		AdcBitDepth:      Adc10Bit,
		RegionOfInterest: Rect{X: 120, Y: 140, Width: 1200, Height: 800},
	}
}

func testRig() *JustFramesRig {
	return &JustFramesRig{
		RigBase: RigBase{ComputerName: "W10DT714163", RigName: "MotorObservatory0000", DataDir: `D:\Data`},
		TriggeredCameraController0: CameraController{
			FrameRate: 200,
			Cameras: map[string]SpinnakerCamera{
				"Camera0": testCamera("23382593"),
				"Camera1": testCamera("23382581"),
			},
		},
		HarpBehavior: HarpBoard{DeviceType: HarpDeviceBehavior, PortName: "COM3"},
		SatelliteRigs: []SatelliteRig{{
			RigBase: RigBase{ComputerName: "W10DT714079", RigName: "satellite_rig", DataDir: `C:\Data`},
			TriggeredCameraController0: CameraController{
				FrameRate: 200,
				Cameras:   map[string]SpinnakerCamera{"Camera7": testCamera("23373894")},
			},
			ZmqTriggerConfig:  NetworkConfig{Address: "10.128.49.106", Port: 5555},
			ZmqProtocolConfig: NetworkConfig{Address: "10.128.49.154", Port: 5556},
		}},
		ZmqTriggerConfig: NetworkConfig{Address: "10.128.49.106", Port: 5555},
	}
}

func testFipRig() *FipRig {
	return &FipRig{
		RigBase:        RigBase{ComputerName: "W10DT714163", RigName: "MOT.01", DataDir: "D:/data"},
		CameraGreenIso: FipCamera{SerialNumber: "24521422", Offset: Point2f{X: 104, Y: 56}},
		CameraRed:      FipCamera{SerialNumber: "24521414", Offset: Point2f{X: 104, Y: 56}},
		LightSourceBlue: LightSource{
			Power:       10,
			Calibration: &LightSourceCalibration{PowerLut: PowerLUT{0: 0, 0.1: 10, 0.2: 20, 0.4: 40}},
			Task:        FipTask{CameraPort: PortIO0, LightSourcePort: PortIO2},
		},
		LightSourceLime: LightSource{
			Power:       20,
			Calibration: &LightSourceCalibration{PowerLut: PowerLUT{0: 0, 0.1: 4, 0.2: 7.5, 0.4: 15, 0.6: 35}},
			Task:        FipTask{CameraPort: PortIO1, LightSourcePort: PortIO4},
		},
		LightSourceUv: LightSource{
			Power:       0.1,
			Calibration: &LightSourceCalibration{PowerLut: PowerLUT{0: 0, 0.1: 10, 0.2: 20}},
			Task:        FipTask{CameraPort: PortIO0, LightSourcePort: PortIO3},
		},
		RoiSettings:   &RoiSettings{},
		Networking:    Networking{ZmqPublisher: NetworkConfig{Address: "localhost", Port: 5556}},
		CuttlefishFip: HarpBoard{DeviceType: HarpDeviceCuttlefishFip, PortName: "COM5"},
	}
}

func TestRigDocumentRoundTrip(t *testing.T) {
	rig := testRig()
	data, err := MarshalDocument(rig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back JustFramesRig
	if err := UnmarshalDocument(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(rig, &back) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", rig, &back)
	}
	if !strings.Contains(string(data), "\n  \"rig_name\": \"MotorObservatory0000\"") {
		t.Fatalf("expected indented flattened rig_name field, got:\n%s", data)
	}
}

func TestFipRigDocumentRoundTrip(t *testing.T) {
	rig := testFipRig()
	data, err := MarshalDocument(rig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"0.1": 10`) {
		t.Fatalf("expected decimal string LUT keys, got:\n%s", data)
	}
	var back FipRig
	if err := UnmarshalDocument(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(rig, &back) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", rig, &back)
	}
	if err := back.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestUnmarshalDocumentToleratesComments(t *testing.T) {
	raw := []byte(`{
  // satellite used for side views
  "rig_name": "sat-a",
  "computer_name": "W10",
  "data_directory": "C:/Data",
  "zmq_protocol_config": {"address": "10.0.0.2", "port": 5556,},
}`)
	var sat SatelliteRig
	if err := UnmarshalDocument(raw, &sat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sat.Name() != "sat-a" || sat.ZmqProtocolConfig.Address != "10.0.0.2" {
		t.Fatalf("unexpected satellite: %+v", sat)
	}
}

func TestJustFramesRigValidateRejectsDuplicateSatellites(t *testing.T) {
	rig := testRig()
	rig.SatelliteRigs = append(rig.SatelliteRigs, rig.SatelliteRigs[0])
	if err := rig.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate satellite") {
		t.Fatalf("expected duplicate satellite error, got %v", err)
	}
}

func TestCameraControllerRejectsDuplicateSerials(t *testing.T) {
	rig := testRig()
	rig.TriggeredCameraController0.Cameras["Camera1"] = testCamera("23382593")
	if err := rig.Validate(); err == nil {
		t.Fatalf("expected duplicate serial error")
	}
}

func TestFipRigValidateRejectsSharedLightSourcePort(t *testing.T) {
	rig := testFipRig()
	rig.LightSourceUv.Task.LightSourcePort = PortIO2
	if err := rig.Validate(); err == nil || !strings.Contains(err.Error(), "reuses light source port") {
		t.Fatalf("expected port reuse error, got %v", err)
	}
}

func TestPowerLUTInterpolates(t *testing.T) {
	lut := PowerLUT{0: 0, 0.1: 4, 0.2: 7.5, 0.4: 15}
	cases := map[float64]float64{
		-1:   0,
		0.1:  4,
		0.15: 5.75,
		0.3:  11.25,
		0.9:  15,
	}
	for in, want := range cases {
		got, err := lut.Power(in)
		if err != nil {
			t.Fatalf("power(%v): %v", in, err)
		}
		if diff := got - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("power(%v) = %v, want %v", in, got, want)
		}
	}
	if _, err := (PowerLUT{}).Power(0.1); err == nil {
		t.Fatalf("expected error for empty lut")
	}
}

func TestSessionRegisterAssignsName(t *testing.T) {
	s := &Session{Subject: "809487", Date: time.Date(2024, 5, 3, 14, 7, 9, 0, time.UTC)}
	if _, err := s.Name(); !errors.Is(err, ErrSessionNameUnset) {
		t.Fatalf("expected ErrSessionNameUnset before register, got %v", err)
	}
	name, err := s.Register()
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if name != "809487_20240503T140709" {
		t.Fatalf("unexpected session name %q", name)
	}

	s.SessionName = "custom"
	if name, _ := s.Register(); name != "custom" {
		t.Fatalf("register must keep an existing name, got %q", name)
	}
}

func TestSessionRegisterRequiresSubject(t *testing.T) {
	s := &Session{Date: time.Now()}
	if _, err := s.Register(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDocumentFileNames(t *testing.T) {
	if got := SchemaFileName(testRig()); got != "AindJustFramesRig.json" {
		t.Fatalf("unexpected schema file name %q", got)
	}
	if got := SessionFileName("s1"); got != "s1_session.json" {
		t.Fatalf("unexpected session file name %q", got)
	}
	if got := RigFileName("s1"); got != "s1_rig.json" {
		t.Fatalf("unexpected rig file name %q", got)
	}
}

func TestLibraryDocumentKeepsUndeclaredFields(t *testing.T) {
	raw := []byte(`{
  "aind_behavior_services_pkg_version": "0.8.2",
  "computer_name": "W10DT714163",
  "rig_name": "MotorObservatory0000",
  "data_directory": "D:/Data",
  "triggered_camera_controller_0": {"frame_rate": 200, "cameras": {}},
  "triggered_camera_controller_1": null,
  "harp_behavior": {"device_type": "Behavior", "port_name": "COM3"},
  "zmq_trigger_config": {"address": "10.128.49.106", "port": 5555},
  "satellite_rigs": [{
    "aind_behavior_services_pkg_version": "0.8.2",
    "computer_name": "W10DT714079",
    "rig_name": "satellite_rig",
    "data_directory": "C:/Data",
    "zmq_trigger_config": {"address": "10.128.49.106", "port": 5555},
    "zmq_protocol_config": {"address": "10.128.49.154", "port": 5556},
    "triggered_camera_controller_0": {
      "frame_rate": 200,
      "cameras": {
        "Camera7": {
          "device_type": "SpinnakerCamera",
          "serial_number": "23373894",
          "color_processing": "NoColorProcessing",
          "exposure": 4000
        }
      }
    }
  }]
}`)
	var rig JustFramesRig
	if err := UnmarshalDocument(raw, &rig); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	sat := rig.SatelliteRigs[0]
	sat.DataDir = "E:/Data"
	data, err := MarshalDocument(&sat)
	if err != nil {
		t.Fatalf("marshal satellite: %v", err)
	}
	var out map[string]any
	if err := UnmarshalDocument(data, &out); err != nil {
		t.Fatalf("reparse satellite: %v", err)
	}
	if out["aind_behavior_services_pkg_version"] != "0.8.2" {
		t.Fatalf("expected package version to survive, got:\n%s", data)
	}
	if out["data_directory"] != "E:/Data" {
		t.Fatalf("expected declared field to win over the library value, got:\n%s", data)
	}
	camera := out["triggered_camera_controller_0"].(map[string]any)["cameras"].(map[string]any)["Camera7"].(map[string]any)
	if camera["color_processing"] != "NoColorProcessing" || camera["serial_number"] != "23373894" {
		t.Fatalf("expected camera fields to survive, got %v", camera)
	}

	data, err = MarshalDocument(&rig)
	if err != nil {
		t.Fatalf("marshal rig: %v", err)
	}
	if strings.Count(string(data), `"aind_behavior_services_pkg_version"`) != 2 || !strings.Contains(string(data), `"color_processing"`) {
		t.Fatalf("expected undeclared fields at every level, got:\n%s", data)
	}
}

func TestSessionDocumentKeepsUndeclaredFields(t *testing.T) {
	raw := []byte(`{"subject": "809487", "date": "2024-05-03T14:07:09Z", "experimenter": ["bruno.cruz"], "animal_weight_prior": 23.5}`)
	var s Session
	if err := UnmarshalDocument(raw, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := s.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	data, err := MarshalDocument(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"animal_weight_prior": 23.5`) || !strings.Contains(string(data), `"session_name": "809487_20240503T140709"`) {
		t.Fatalf("unexpected session document:\n%s", data)
	}
}

func TestPowerLUTKeysAreNotDuplicated(t *testing.T) {
	rig := testFipRig()
	data, err := MarshalDocument(rig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	respelled := strings.Replace(string(data), `"0.1": 10`, `"0.10": 10`, 1)
	var back FipRig
	if err := UnmarshalDocument([]byte(respelled), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, err := MarshalDocument(&back)
	if err != nil {
		t.Fatalf("marshal again: %v", err)
	}
	if strings.Contains(string(again), `"0.10"`) {
		t.Fatalf("expected reformatted LUT key to replace the original, got:\n%s", again)
	}
}
