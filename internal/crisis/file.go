package crisis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a lexicon override:
//
//	lexicon:
//	  critical: ["..."]
//	  high: ["..."]
//	  medium: ["..."]
//	  low: ["..."]
//	patterns:
//	  - id: extra-rule
//	    regex: "..."
//	    severity: HIGH
type File struct {
	Lexicon struct {
		Critical []string `yaml:"critical"`
		High     []string `yaml:"high"`
		Medium   []string `yaml:"medium"`
		Low      []string `yaml:"low"`
	} `yaml:"lexicon"`
	Patterns []PatternDef `yaml:"patterns"`
}

// Load builds an Assessor from a lexicon file.  An empty path or a missing
// file yields the reference data.  When the file names no phrases at all the
// reference lexicon is kept; extra patterns are appended after the reference
// rules.  Any parse or compile failure is returned so the caller can refuse to
// start.
func Load(path string) (*Assessor, error) {
	if path == "" {
		return NewDefaultAssessor(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefaultAssessor(), nil
		}
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}

	lexicon := DefaultLexicon()
	tiers := map[Severity][]string{
		Critical: f.Lexicon.Critical,
		High:     f.Lexicon.High,
		Medium:   f.Lexicon.Medium,
		Low:      f.Lexicon.Low,
	}
	if custom := NewLexicon(tiers); custom.Len() > 0 {
		lexicon = custom
	}

	extra, err := CompilePatterns(f.Patterns)
	if err != nil {
		return nil, fmt.Errorf("lexicon file %s: %w", path, err)
	}
	return NewAssessor(lexicon, append(DefaultPatterns(), extra...)), nil
}
