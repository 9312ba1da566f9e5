package parser

import (
	"regexp"
	"strings"
)

var (
	// Matches '$4.99' or '$ 12'. Captures the numeric part.
	priceRegex = regexp.MustCompile(`\$\s?(\d{1,3}(?:\.\d{1,2})?)`)

	// Matches '/lb', '3 for $5.00', 'buy 2 get 1' or 'each'.
	unitRegex = regexp.MustCompile(`(?i)(/(?:lb|kg|ea))|(\d+\s?for\s?\$\s?\d+(?:\.\d{1,2})?)|(buy\s?\d+\s?get\s?\d+)|(each)`)

	// Anything that looks like a price or a promotion: a dollar amount,
	// a multi-buy or a buy-N-get-N.
	promoRegex = regexp.MustCompile(`(?i)(\$\s?\d{1,3}(?:\.\d{1,2})?)|(\d+\s?for\s?\$\s?\d+(?:\.\d{1,2})?)|(buy\s?\d+\s?get\s?\d+)`)

	// A price given as a bare number, as in itemprop="price" content="4.99".
	bareAmountRegex = regexp.MustCompile(`^\d{1,6}(?:\.\d{1,2})?$`)
)

// ParsePriceUnit returns the first dollar amount (without the sign) and the first
// unit descriptor found in text. Either may be empty; the searches are independent.
func ParsePriceUnit(text string) (price, unit string) {
	if m := priceRegex.FindStringSubmatch(text); len(m) > 1 {
		price = m[1]
	}
	unit = unitRegex.FindString(text)
	return price, unit
}

// CardPrice extracts the numeric price from a card's price text. Unlike
// ParsePriceUnit it also accepts a bare amount, which is how structured markup
// usually carries the price.
func CardPrice(priceText string) string {
	price, _ := ParsePriceUnit(priceText)
	if price != "" {
		return price
	}
	if s := strings.TrimSpace(priceText); bareAmountRegex.MatchString(s) {
		return s
	}
	return ""
}

// HasPromo reports whether text carries a price or promotion pattern.
func HasPromo(text string) bool {
	return promoRegex.MatchString(text)
}

// findPromo returns the first price or promotion snippet in text.
func findPromo(text string) string {
	return promoRegex.FindString(text)
}
