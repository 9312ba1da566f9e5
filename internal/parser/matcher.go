package parser

import (
	"fmt"
	"regexp"
	"strings"

	"grocery_deals/internal/models"
)

// Keyword is one configured keyword and its case-insensitive pattern.
type Keyword struct {
	Raw     string
	Pattern *regexp.Regexp
}

// Keywords keeps the configured order; the first keyword to match wins.
type Keywords []Keyword

// CompileKeywords compiles each keyword as a case-insensitive regular expression.
// A keyword that is not a valid expression is matched literally instead; those
// keywords are reported in the returned error, which is informational only.
func CompileKeywords(raw []string) (Keywords, error) {
	keywords := make(Keywords, 0, len(raw))
	var invalid []string
	for _, kw := range raw {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + kw)
		if err != nil {
			invalid = append(invalid, kw)
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(kw))
		}
		keywords = append(keywords, Keyword{Raw: kw, Pattern: re})
	}
	if len(invalid) > 0 {
		return keywords, fmt.Errorf("keywords matched literally, not valid expressions: %q", invalid)
	}
	return keywords, nil
}

// First returns the first keyword that matches text.
func (k Keywords) First(text string) (string, bool) {
	for _, kw := range k {
		if kw.Pattern.MatchString(text) {
			return kw.Raw, true
		}
	}
	return "", false
}

// MatchCards keeps the cards whose title, price text or raw text mention a
// keyword, tagging each with the first keyword that fired.
func MatchCards(cards []models.Card, keywords Keywords) []models.Match {
	var matches []models.Match
	for _, card := range cards {
		blob := strings.Join([]string{card.Title, card.PriceText, card.RawText}, " ")
		if kw, ok := keywords.First(blob); ok {
			matches = append(matches, models.Match{Card: card, Keyword: kw})
		}
	}
	return matches
}

// MatchBlocks is MatchCards for fallback text blocks.
func MatchBlocks(blocks []string, keywords Keywords) []models.Match {
	var matches []models.Match
	for _, block := range blocks {
		if kw, ok := keywords.First(block); ok {
			matches = append(matches, models.Match{
				Card:      models.Card{RawText: block},
				Keyword:   kw,
				FromBlock: true,
			})
		}
	}
	return matches
}
