// Package serialport opens the USB serial link to the screen and finds it
// by USB serial number.
package serialport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Auto is the port name that requests discovery by serial number.
const Auto = "AUTO"

// RevASerial is the USB serial number reported by revision A screens.
const RevASerial = "USB35INCHIPSV2"

var (
	// ErrTimeout is returned by Read when no byte arrived within the read
	// timeout.
	ErrTimeout = errors.New("serial read timeout")

	// ErrNotFound is returned by Detect when no USB port matches.
	ErrNotFound = errors.New("no matching serial device")
)

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// Port is an open serial port. Unlike the underlying library, a read that
// times out reports ErrTimeout, so io.ReadFull cannot spin on empty reads.
type Port struct {
	name string
	port serial.Port
}

// Open opens name at baud in 8N1 with the given read timeout.
func Open(name string, baud int, timeout time.Duration) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return &Port{name: name, port: p}, nil
}

// Name returns the device path.
func (p *Port) Name() string { return p.name }

func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err != nil {
		return n, err
	}
	if n == 0 && len(b) > 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the port.
func (p *Port) Close() error {
	return p.port.Close()
}

// Resolve returns name, or the detected port path when name is Auto.
func Resolve(name, serialNumber string) (string, error) {
	if !strings.EqualFold(name, Auto) {
		return name, nil
	}
	return Detect(serialNumber)
}

// Detect returns the path of the first USB port whose serial number is
// serialNumber.
func Detect(serialNumber string) (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && p.SerialNumber == serialNumber {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w: serial number %s", ErrNotFound, serialNumber)
}

// List returns every serial port known to the system.
func List() ([]*enumerator.PortDetails, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
