package serialport

import (
	"errors"
	"testing"

	"go.bug.st/serial/enumerator"
)

func withPorts(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	orig := listPorts
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { listPorts = orig })
}

func TestDetect(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, SerialNumber: "OTHER"},
		{Name: "/dev/ttyACM1", IsUSB: true, SerialNumber: RevASerial},
	}, nil)

	got, err := Detect(RevASerial)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got != "/dev/ttyACM1" {
		t.Errorf("Detect = %q, want /dev/ttyACM1", got)
	}
}

func TestDetectNotFound(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{{Name: "/dev/ttyS0"}}, nil)

	_, err := Detect(RevASerial)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Detect error = %v, want ErrNotFound", err)
	}
}

func TestDetectListError(t *testing.T) {
	listErr := errors.New("enumeration failed")
	withPorts(t, nil, listErr)

	if _, err := Detect(RevASerial); !errors.Is(err, listErr) {
		t.Fatalf("Detect error = %v, want wrapped enumeration error", err)
	}
}

func TestResolve(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyACM0", IsUSB: true, SerialNumber: RevASerial},
	}, nil)

	tests := []struct {
		name string
		want string
	}{
		{"/dev/ttyUSB3", "/dev/ttyUSB3"},
		{"AUTO", "/dev/ttyACM0"},
		{"auto", "/dev/ttyACM0"},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.name, RevASerial)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open("/nonexistent/tty", 115200, 0); err == nil {
		t.Fatal("Open of a missing device should fail")
	}
}
