package crisis

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// patternConfidence is the confidence floor applied when a pattern raises the
// level.
const patternConfidence = 0.80

// PatternRule is a context-sensitive matcher.  A match can only raise the
// assessed level to Target, never lower it.
type PatternRule struct {
	ID         string
	Expr       *regexp.Regexp
	Target     Severity
	Confidence float64
}

// PatternDef is the uncompiled form of a rule, as read from a lexicon file.
type PatternDef struct {
	ID       string `yaml:"id"`
	Regex    string `yaml:"regex"`
	Severity string `yaml:"severity"`
}

var defaultPatternDefs = []PatternDef{
	{ID: "decided-to-end", Regex: `đã (quyết định|chuẩn bị|lên kế hoạch).*(chết|tự tử|kết thúc)`, Severity: "HIGH"},
	{ID: "no-will-to-live", Regex: `không (muốn|còn muốn) sống.*(nữa|tiếp)`, Severity: "HIGH"},
	{ID: "want-to-disappear", Regex: `muốn.*(biến mất|bay đi|không tồn tại)`, Severity: "HIGH"},
	{ID: "better-without-me", Regex: `mọi người.*(tốt hơn|vui hơn).*không có mình`, Severity: "HIGH"},
}

// DefaultPatterns returns the compiled reference rules.  The definitions are
// constant, so a compile failure is a programming error.
func DefaultPatterns() []PatternRule {
	rules, err := CompilePatterns(defaultPatternDefs)
	if err != nil {
		panic(err)
	}
	return rules
}

// CompilePatterns validates and compiles rule definitions.  Every rule is
// matched case-insensitively against normalized text.
func CompilePatterns(defs []PatternDef) ([]PatternRule, error) {
	rules := make([]PatternRule, 0, len(defs))
	for i, def := range defs {
		if strings.TrimSpace(def.ID) == "" {
			return nil, fmt.Errorf("patterns[%d]: id is required", i)
		}
		if def.Regex == "" {
			return nil, fmt.Errorf("patterns[%d] %q: regex is required", i, def.ID)
		}
		target := High
		if def.Severity != "" {
			s, err := ParseSeverity(def.Severity)
			if err != nil {
				return nil, fmt.Errorf("patterns[%d] %q: %w", i, def.ID, err)
			}
			target = s
		}
		if target == None {
			return nil, fmt.Errorf("patterns[%d] %q: target severity must be above NONE", i, def.ID)
		}
		re, err := regexp.Compile("(?i)" + norm.NFC.String(def.Regex))
		if err != nil {
			return nil, fmt.Errorf("patterns[%d] %q: invalid regex: %w", i, def.ID, err)
		}
		rules = append(rules, PatternRule{
			ID:         def.ID,
			Expr:       re,
			Target:     target,
			Confidence: patternConfidence,
		})
	}
	return rules, nil
}

// triggerID is how a pattern match is recorded in Assessment.Triggers.
func (r PatternRule) triggerID() string {
	return "pattern:" + r.ID
}
