package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gitlab.com/tinyland/lab/turing-screen/pkg/meter"
	"gitlab.com/tinyland/lab/turing-screen/pkg/serialport"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

// printPorts lists the serial ports with their USB details. The screen is
// the port carrying the Rev A serial number.
func printPorts(w io.Writer) error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}

	t := newTable("PORT", "VID:PID", "SERIAL", "PRODUCT", "SCREEN")
	for _, p := range ports {
		ids, screen := "-", ""
		if p.IsUSB {
			ids = p.VID + ":" + p.PID
		}
		if p.SerialNumber == serialport.RevASerial {
			screen = "rev A"
		}
		t.Row(p.Name, ids, p.SerialNumber, p.Product, screen)
	}
	fmt.Fprintln(w, t)
	return nil
}

// printMeters lists the supported meter keys and their source ids.
func printMeters(w io.Writer) error {
	t := newTable("METER", "ID")
	for _, k := range meter.Keys() {
		t.Row(k, fmt.Sprintf("%016x", meter.SourceID(k)))
	}
	fmt.Fprintln(w, t)
	return nil
}
