package crisis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the ordered crisis level of a single message.  Values compare
// with the usual integer operators: None < Low < Medium < High < Critical.
type Severity int

const (
	None Severity = iota
	Low
	Medium
	High
	Critical
)

// Levels lists every severity in ascending order.
var Levels = []Severity{None, Low, Medium, High, Critical}

func (s Severity) String() string {
	switch s {
	case None:
		return "NONE"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a level name (case-insensitive) back to a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NONE":
		return None, nil
	case "LOW":
		return Low, nil
	case "MEDIUM":
		return Medium, nil
	case "HIGH":
		return High, nil
	case "CRITICAL":
		return Critical, nil
	}
	return None, fmt.Errorf("unknown crisis level %q", name)
}

// Raise returns the higher of current and candidate.  Every upgrade of an
// assessed level goes through here so a level can never move down.
func Raise(current, candidate Severity) Severity {
	if candidate > current {
		return candidate
	}
	return current
}

// ShowsHotline reports whether the hotline affordance must be rendered.
func (s Severity) ShowsHotline() bool {
	return s >= High
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalText accepts the level names produced by String.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
