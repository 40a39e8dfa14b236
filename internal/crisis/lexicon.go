package crisis

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TriggerEntry is one lexicon phrase and the tier it belongs to.
type TriggerEntry struct {
	Phrase string   `json:"phrase"`
	Tier   Severity `json:"tier"`
}

// Lexicon holds the phrase tiers.  It is built once and never mutated, so it
// can be shared by any number of goroutines.
type Lexicon struct {
	tiers map[Severity][]string
}

// scanOrder is the priority in which tiers are tested; the first tier with a
// hit wins.
var scanOrder = []Severity{Critical, High, Medium, Low}

var defaultTiers = map[Severity][]string{
	Critical: {
		"muốn chết",
		"muốn tự tử",
		"tự tử",
		"kết thúc cuộc sống",
		"kết thúc tất cả",
		"không muốn sống",
		"không muốn sống nữa",
		"tự làm đau",
		"tự cắt",
		"tự hại",
		"đã chuẩn bị",
		"đã viết thư",
		"sẽ làm tối nay",
		"đây là lần cuối",
		"tạm biệt mọi người",
	},
	High: {
		"muốn biến mất",
		"không muốn tồn tại",
		"giá mà mình không được sinh ra",
		"mọi người sẽ tốt hơn không có mình",
		"không còn lý do để sống",
		"không có gì để mong chờ",
		"chẳng còn ý nghĩa gì",
		"muốn ngủ mãi không thức dậy",
	},
	Medium: {
		"vô vọng",
		"hoàn toàn một mình",
		"không ai hiểu mình",
		"không ai quan tâm",
		"ghét bản thân",
		"mình là gánh nặng",
		"mình vô dụng",
		"không có ai để nói chuyện",
	},
	Low: {
		"rất buồn",
		"quá mệt mỏi",
		"không thể chịu được",
		"muốn khóc",
		"stress quá",
		"áp lực quá",
		"không ngủ được",
	},
}

// NewLexicon builds a Lexicon from phrase lists keyed by tier.  Phrases are
// normalized the same way messages are; blanks are dropped.  A phrase listed
// under two tiers is kept in both and the higher tier wins at scan time.
func NewLexicon(tiers map[Severity][]string) *Lexicon {
	l := &Lexicon{tiers: make(map[Severity][]string, len(scanOrder))}
	for _, tier := range scanOrder {
		for _, p := range tiers[tier] {
			p = Normalize(p)
			if strings.TrimSpace(p) == "" {
				continue
			}
			l.tiers[tier] = append(l.tiers[tier], p)
		}
	}
	return l
}

// DefaultLexicon returns the reference Vietnamese lexicon.
func DefaultLexicon() *Lexicon {
	return NewLexicon(defaultTiers)
}

// Tier returns a copy of the phrases in one tier.
func (l *Lexicon) Tier(tier Severity) []string {
	return append([]string(nil), l.tiers[tier]...)
}

// Entries enumerates every phrase in scan priority order.
func (l *Lexicon) Entries() []TriggerEntry {
	var out []TriggerEntry
	for _, tier := range scanOrder {
		for _, p := range l.tiers[tier] {
			out = append(out, TriggerEntry{Phrase: p, Tier: tier})
		}
	}
	return out
}

// Len is the total number of phrases across tiers.
func (l *Lexicon) Len() int {
	n := 0
	for _, phrases := range l.tiers {
		n += len(phrases)
	}
	return n
}

// Normalize prepares text for matching: canonical composition so that
// decomposed diacritics (common from mobile keyboards and STT output) compare
// equal to precomposed ones, then lowercase.  Diacritics are kept.
func Normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
