package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Normalize collapses every run of whitespace, newlines and non-breaking spaces
// included, to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// skippedTags never contribute visible text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// FlattenText returns the normalized text of every node in the selection, with
// adjacent text nodes separated by a space so "Eggs</h2><span>$4.99" reads "Eggs $4.99".
func FlattenText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(&b, n)
	}
	return Normalize(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if skippedTags[n.Data] {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}
