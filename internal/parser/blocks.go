package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MinBlockLength is the rune count from which a text line is kept even without
// a price or promotion pattern.
const MinBlockLength = 100

// invisibleTags never render text on the page.
var invisibleTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
}

// blockTags start a new line when flattening.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"br": true, "dd": true, "details": true, "dialog": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "summary": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

var textLineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func isHidden(n *html.Node) bool {
	if invisibleTags[n.Data] {
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return true
			}
		case "style":
			if strings.Contains(strings.ReplaceAll(strings.ToLower(a.Val), " ", ""), "display:none") {
				return true
			}
		}
	}
	return false
}

// ExtractBlocks flattens the visible text of the document to one line per
// block element and keeps the lines worth keyword matching: long ones, and
// short ones that mention a price or promotion. Lines are normalized.
func ExtractBlocks(doc *goquery.Document) []string {
	var b strings.Builder
	for _, n := range doc.Nodes {
		writeBlocks(&b, n)
	}

	var blocks []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = Normalize(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) < MinBlockLength && !HasPromo(line) {
			continue
		}
		blocks = append(blocks, line)
	}
	return blocks
}

func writeBlocks(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// Source line breaks inside a block are not visible breaks.
		b.WriteString(textLineBreaks.Replace(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if isHidden(n) {
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlocks(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
