package preview

import (
	"os"
	"strings"
)

// Protocol identifies how frames are drawn in the terminal.
type Protocol int

const (
	ProtocolNone       Protocol = iota // preview disabled
	ProtocolKitty                      // kitty graphics (kitty, ghostty, wezterm)
	ProtocolITerm2                     // iTerm2 inline images
	ProtocolSixel                      // sixel graphics
	ProtocolHalfblocks                 // U+2580 with 24-bit ANSI colour
)

var protocolNames = [...]string{
	ProtocolNone:       "none",
	ProtocolKitty:      "kitty",
	ProtocolITerm2:     "iterm2",
	ProtocolSixel:      "sixel",
	ProtocolHalfblocks: "halfblocks",
}

func (p Protocol) String() string {
	if int(p) < len(protocolNames) {
		return protocolNames[p]
	}
	return "unknown"
}

// SelectProtocol maps a configured protocol name to a Protocol. "auto" and
// unknown names fall back to DetectProtocol.
func SelectProtocol(name string) Protocol {
	switch strings.ToLower(name) {
	case "kitty":
		return ProtocolKitty
	case "iterm2":
		return ProtocolITerm2
	case "sixel":
		return ProtocolSixel
	case "halfblocks", "half-blocks", "unicode":
		return ProtocolHalfblocks
	case "none", "off", "disabled":
		return ProtocolNone
	default:
		return DetectProtocol()
	}
}

// DetectProtocol picks the best protocol from the environment. Graphics
// protocols are unreliable over SSH, so remote sessions use halfblocks.
func DetectProtocol() Protocol {
	if isSSH() {
		return ProtocolHalfblocks
	}

	program := os.Getenv("TERM_PROGRAM")
	term := os.Getenv("TERM")
	switch {
	case os.Getenv("KITTY_WINDOW_ID") != "",
		strings.Contains(term, "kitty"),
		strings.Contains(term, "ghostty"),
		strings.EqualFold(program, "ghostty"),
		strings.EqualFold(program, "WezTerm"):
		return ProtocolKitty
	case program == "iTerm.app":
		return ProtocolITerm2
	case strings.Contains(term, "sixel"), term == "mlterm", term == "foot":
		return ProtocolSixel
	default:
		return ProtocolHalfblocks
	}
}

func isSSH() bool {
	return os.Getenv("SSH_TTY") != "" ||
		os.Getenv("SSH_CONNECTION") != "" ||
		os.Getenv("SSH_CLIENT") != ""
}
