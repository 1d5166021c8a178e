package preview

import (
	"os"
	"strings"
)

// Capability is the inline image protocol a terminal speaks.
type Capability int

const (
	CapNone Capability = iota
	CapKitty
	CapITerm
	CapSixel
)

func (c Capability) String() string {
	switch c {
	case CapKitty:
		return "kitty"
	case CapITerm:
		return "iterm"
	case CapSixel:
		return "sixel"
	default:
		return "none"
	}
}

// ParseCapability maps a protocol name to a Capability. Unknown names
// give CapNone.
func ParseCapability(s string) Capability {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kitty":
		return CapKitty
	case "iterm", "iterm2":
		return CapITerm
	case "sixel":
		return CapSixel
	default:
		return CapNone
	}
}

// DetectCapability inspects the environment. PIXL_PREVIEW overrides
// detection. Order: override, Kitty, iTerm, Sixel.
func DetectCapability() Capability {
	return detect(os.Getenv)
}

func detect(getenv func(string) string) Capability {
	if v := getenv("PIXL_PREVIEW"); v != "" {
		return ParseCapability(v)
	}

	term := getenv("TERM")
	termProgram := getenv("TERM_PROGRAM")

	switch {
	case getenv("KITTY_WINDOW_ID") != "", strings.Contains(term, "kitty"), termProgram == "ghostty":
		return CapKitty
	case termProgram == "iTerm.app", getenv("LC_TERMINAL") == "iTerm2", termProgram == "WezTerm":
		return CapITerm
	case strings.Contains(term, "sixel"), strings.Contains(term, "mlterm"):
		return CapSixel
	}
	return CapNone
}
