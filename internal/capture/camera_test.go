package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantFPS int
	}{
		{
			name:    "zero config",
			config:  Config{},
			wantFPS: DefaultFPS,
		},
		{
			name:    "explicit fps",
			config:  Config{DeviceID: 1, FPS: 15},
			wantFPS: 15,
		},
		{
			name:    "negative fps falls back",
			config:  Config{FPS: -1},
			wantFPS: DefaultFPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)

			if cam == nil {
				t.Fatal("NewCamera returned nil")
			}
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
		})
	}
}

func TestConfig_Device(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   interface{}
	}{
		{name: "device id", config: Config{DeviceID: 2}, want: 2},
		{name: "numeric source", config: Config{DeviceID: 2, Source: "1"}, want: 1},
		{name: "stream url", config: Config{Source: "rtsp://cam/stream"}, want: "rtsp://cam/stream"},
		{name: "device path", config: Config{Source: "/dev/video3"}, want: "/dev/video3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.device(); got != tt.want {
				t.Errorf("device() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(Config{})

	cam.SetFPS(10)
	if got := cam.FPS(); got != 10 {
		t.Errorf("FPS() = %d, want 10", got)
	}

	cam.SetFPS(0)
	cam.SetFPS(-5)
	if got := cam.FPS(); got != 10 {
		t.Errorf("FPS() = %d, want previous value 10", got)
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(Config{})

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(Config{})

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(Config{Mirror: true})

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestMirror(t *testing.T) {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 2, 4, gocv.MatTypeCV8UC1)
	defer mat.Close()
	mat.SetUCharAt(0, 0, 200)

	Mirror(&mat)

	if got := mat.GetUCharAt(0, 3); got != 200 {
		t.Errorf("pixel moved to column 3 = %d, want 200", got)
	}
	if got := mat.GetUCharAt(0, 0); got != 0 {
		t.Errorf("column 0 = %d, want 0", got)
	}
}
