package vanvleck

import (
	"fmt"
	"strings"
)

// Model selects the quantization correction.
type Model int

const (
	// NoVanVleck leaves lags unchanged.
	NoVanVleck Model = iota
	// Schwab inverts the quantizer correlation function.
	Schwab
	// PowerLevel applies the empirical power-level fits.
	PowerLevel
)

func (m Model) String() string {
	switch m {
	case NoVanVleck:
		return "NoVanVleck"
	case Schwab:
		return "Schwab"
	case PowerLevel:
		return "PowerLevel"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// ParseModel parses a model name case-insensitively. "none" and the empty
// string select NoVanVleck.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "novanvleck", "none", "":
		return NoVanVleck, nil
	case "schwab":
		return Schwab, nil
	case "powerlevel":
		return PowerLevel, nil
	}
	return NoVanVleck, fmt.Errorf("%w: %q", errUnknownModel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(text []byte) error {
	v, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
