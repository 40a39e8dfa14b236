package crisis

import (
	"strings"
	"testing"
)

func TestDefaultPatterns(t *testing.T) {
	rules := DefaultPatterns()
	if len(rules) != 4 {
		t.Fatalf("expected 4 reference rules, got %d", len(rules))
	}
	for _, r := range rules {
		if r.Target != High {
			t.Errorf("rule %s targets %s, want HIGH", r.ID, r.Target)
		}
		if r.Confidence != 0.80 {
			t.Errorf("rule %s confidence %v, want 0.80", r.ID, r.Confidence)
		}
	}
}

func TestDefaultPatternsMatch(t *testing.T) {
	byID := map[string]PatternRule{}
	for _, r := range DefaultPatterns() {
		byID[r.ID] = r
	}
	tests := []struct {
		id    string
		text  string
		match bool
	}{
		{"decided-to-end", "mình đã lên kế hoạch để tự tử", true},
		{"decided-to-end", "mình đã quyết định đi du lịch", false},
		{"no-will-to-live", "mình không còn muốn sống tiếp", true},
		{"no-will-to-live", "mình không muốn sống ở hà nội", false},
		{"want-to-disappear", "chỉ muốn không tồn tại", true},
		{"want-to-disappear", "mình muốn đi chơi", false},
		{"better-without-me", "mọi người sẽ tốt hơn khi không có mình", true},
		{"better-without-me", "mọi người tốt hơn mình nghĩ", false},
	}
	for _, tt := range tests {
		r, ok := byID[tt.id]
		if !ok {
			t.Fatalf("missing rule %s", tt.id)
		}
		if got := r.Expr.MatchString(tt.text); got != tt.match {
			t.Errorf("%s on %q = %v, want %v", tt.id, tt.text, got, tt.match)
		}
	}
}

func TestCompilePatternsCaseInsensitive(t *testing.T) {
	rules, err := CompilePatterns([]PatternDef{{ID: "x", Regex: "HẾT RỒI", Severity: "medium"}})
	if err != nil {
		t.Fatal(err)
	}
	if !rules[0].Expr.MatchString("thôi hết rồi") {
		t.Error("expected case-insensitive match")
	}
	if rules[0].Target != Medium {
		t.Errorf("expected MEDIUM, got %s", rules[0].Target)
	}
}

func TestCompilePatternsDefaultsToHigh(t *testing.T) {
	rules, err := CompilePatterns([]PatternDef{{ID: "x", Regex: "abc"}})
	if err != nil {
		t.Fatal(err)
	}
	if rules[0].Target != High {
		t.Errorf("expected HIGH default, got %s", rules[0].Target)
	}
}

func TestCompilePatternsErrors(t *testing.T) {
	tests := []struct {
		name string
		def  PatternDef
		want string
	}{
		{"missing id", PatternDef{Regex: "a"}, "id is required"},
		{"missing regex", PatternDef{ID: "a"}, "regex is required"},
		{"bad regex", PatternDef{ID: "a", Regex: "(unclosed"}, "invalid regex"},
		{"bad severity", PatternDef{ID: "a", Regex: "a", Severity: "extreme"}, "unknown crisis level"},
		{"none target", PatternDef{ID: "a", Regex: "a", Severity: "NONE"}, "above NONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompilePatterns([]PatternDef{{ID: "ok", Regex: "ok"}, tt.def})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			if !strings.Contains(err.Error(), "patterns[1]") {
				t.Errorf("error %q does not name the rule index", err)
			}
		})
	}
}
