package crisis

import (
	"strings"
)

// tierConfidence is the fixed confidence reported for a lexicon hit in each
// tier.  It does not grow with the number of hits.
var tierConfidence = map[Severity]float64{
	Critical: 0.95,
	High:     0.85,
	Medium:   0.70,
	Low:      0.50,
}

// Assessment is the result of screening one message.
type Assessment struct {
	Level             Severity `json:"level"`
	Confidence        float64  `json:"confidence"`
	Triggers          []string `json:"triggers"`
	ShouldShowHotline bool     `json:"shouldShowHotline"`
}

// Assessor screens messages against a Lexicon and a Pattern Set.  It keeps no
// state between calls and is safe for concurrent use.
type Assessor struct {
	lexicon  *Lexicon
	patterns []PatternRule
}

// NewAssessor constructs an Assessor.  A nil lexicon means the default one.
func NewAssessor(lexicon *Lexicon, patterns []PatternRule) *Assessor {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Assessor{
		lexicon:  lexicon,
		patterns: append([]PatternRule(nil), patterns...),
	}
}

// NewDefaultAssessor uses the reference lexicon and patterns.
func NewDefaultAssessor() *Assessor {
	return NewAssessor(DefaultLexicon(), DefaultPatterns())
}

// Lexicon returns the lexicon in use.
func (a *Assessor) Lexicon() *Lexicon { return a.lexicon }

// Rules returns a copy of the pattern rules in evaluation order.
func (a *Assessor) Rules() []PatternRule {
	return append([]PatternRule(nil), a.patterns...)
}

// Assess classifies message.  Every input, including the empty string,
// produces a valid Assessment.
//
// Each message is assessed on its own; risk does not accumulate across the
// turns of a conversation.
func (a *Assessor) Assess(message string) Assessment {
	result := Assessment{Level: None, Triggers: []string{}}
	if strings.TrimSpace(message) == "" {
		return result
	}
	text := Normalize(message)

	for _, tier := range scanOrder {
		var hits []string
		for _, phrase := range a.lexicon.tiers[tier] {
			if strings.Contains(text, phrase) {
				hits = append(hits, phrase)
			}
		}
		if len(hits) > 0 {
			result.Level = tier
			result.Confidence = tierConfidence[tier]
			result.Triggers = append(result.Triggers, hits...)
			break
		}
	}

	for _, rule := range a.patterns {
		if !rule.Expr.MatchString(text) {
			continue
		}
		result.Triggers = append(result.Triggers, rule.triggerID())
		// A weak lexicon result (NONE or LOW) always takes the pattern's
		// confidence, even when the level itself does not move.
		if rule.Target > result.Level || result.Level <= Low {
			result.Level = Raise(result.Level, rule.Target)
			result.Confidence = max(result.Confidence, rule.Confidence)
		}
	}

	result.ShouldShowHotline = result.Level.ShowsHotline()
	return result
}
