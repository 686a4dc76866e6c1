package threat

import (
	"context"
	"strings"
)

// defaultKeywords is the built-in scam keyword table. Order matters: it is
// the order triggers are reported in.
var defaultKeywords = []Keyword{
	// credential bait
	{Term: "otp", Weight: 30},
	{Term: "cvv", Weight: 30},
	{Term: "atm pin", Weight: 30},
	{Term: "password", Weight: 25},

	// account pressure
	{Term: "kyc", Weight: 20},
	{Term: "blocked", Weight: 20},
	{Term: "suspended", Weight: 20},

	// payment
	{Term: "upi", Weight: 20},
	{Term: "gift card", Weight: 25},
	{Term: "bitcoin", Weight: 20},
	{Term: "refund", Weight: 15},
	{Term: "transfer", Weight: 15},

	// prize
	{Term: "lottery", Weight: 25},
	{Term: "prize", Weight: 20},
	{Term: "winner", Weight: 20},

	// urgency and generic
	{Term: "urgent", Weight: 10},
	{Term: "immediately", Weight: 10},
	{Term: "verify", Weight: 10},
	{Term: "bank", Weight: 10},
	{Term: "account", Weight: 10},
	{Term: "click", Weight: 10},
	{Term: "link", Weight: 10},
}

// KeywordScorer is the default Scorer implementation.
type KeywordScorer struct {
	keywords []Keyword
}

// NewKeywordScorer returns a KeywordScorer loaded with the built-in table.
func NewKeywordScorer() *KeywordScorer {
	return NewKeywordScorerWith(defaultKeywords)
}

// NewKeywordScorerWith returns a KeywordScorer using the given table.
// Terms are lower-cased; entries with an empty term are skipped.
func NewKeywordScorerWith(keywords []Keyword) *KeywordScorer {
	s := &KeywordScorer{keywords: make([]Keyword, 0, len(keywords))}
	for _, kw := range keywords {
		term := strings.ToLower(strings.TrimSpace(kw.Term))
		if term == "" {
			continue
		}
		s.keywords = append(s.keywords, Keyword{Term: term, Weight: kw.Weight})
	}
	return s
}

// Score implements Scorer. Each keyword counts once no matter how often it
// appears.
func (s *KeywordScorer) Score(_ context.Context, text string) (*Report, error) {
	lower := strings.ToLower(text)

	total := 0
	triggers := []string{}
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw.Term) {
			total += kw.Weight
			triggers = append(triggers, kw.Term)
		}
	}

	return &Report{
		Score:    total,
		Level:    LevelFor(total),
		Triggers: triggers,
	}, nil
}

// Keywords returns a copy of the scoring table.
func (s *KeywordScorer) Keywords() []Keyword {
	out := make([]Keyword, len(s.keywords))
	copy(out, s.keywords)
	return out
}
