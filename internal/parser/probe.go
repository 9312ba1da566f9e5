package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// probe looks for a descendant matching selector and reads a value from it:
// the first non-empty attribute in attrs, else the element text when text is set.
// With ownScope, descendants that belong to a nested itemscope (a Brand or
// Review inside a Product) are passed over.
type probe struct {
	selector string
	attrs    []string
	text     bool
	ownScope bool
}

// Lookup lists are tried in order; the first probe that yields a value wins.
var (
	structuredTitleProbes = []probe{
		{selector: `[itemprop="name"]`, attrs: []string{"content"}, text: true, ownScope: true},
	}

	genericTitleProbes = []probe{
		{selector: "h1, h2, h3, h4, h5, h6", text: true},
		{selector: `[itemprop="name"]`, attrs: []string{"content"}, text: true, ownScope: true},
		{selector: `[class*="title"], [class*="Title"]`, text: true},
		{selector: `[class*="name"], [class*="Name"]`, text: true},
		{selector: `[data-testid*="title"], [data-testid*="name"]`, text: true},
	}

	priceProbes = []probe{
		{selector: `[itemprop="price"], [itemprop="lowPrice"]`, attrs: []string{"content"}, text: true},
		{selector: `[class*="price"], [class*="Price"]`, text: true},
		{selector: `[data-price]`, attrs: []string{"data-price"}, text: true},
		{selector: `[id*="price"], [data-testid*="price"], [aria-label*="price"]`, text: true},
	}

	imageProbes = []probe{
		{selector: "img", attrs: []string{"src", "data-src", "data-lazy-src", "data-original"}},
	}

	linkProbes = []probe{
		{selector: "a[href]", attrs: []string{"href"}},
	}

	// Descendants that make a container look like a product tile.
	titleHints = strings.Join([]string{
		"h1", "h2", "h3", "h4", "h5", "h6",
		`[itemprop="name"]`,
		`[class*="title"]`, `[class*="Title"]`,
		`[class*="name"]`, `[class*="Name"]`,
	}, ", ")
)

// firstValue runs the probes against sel's descendants and returns the first
// non-empty value, normalized.
func firstValue(sel *goquery.Selection, probes []probe) string {
	for _, p := range probes {
		var value string
		sel.Find(p.selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if p.ownScope && inNestedScope(el, sel) {
				return true
			}
			value = readProbe(el, p)
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// inNestedScope reports whether an itemscope element sits between el and the
// card root.
func inNestedScope(el, root *goquery.Selection) bool {
	if len(root.Nodes) == 0 {
		return false
	}
	stop := root.Nodes[0]
	for n := el.Nodes[0].Parent; n != nil && n != stop; n = n.Parent {
		for _, a := range n.Attr {
			if a.Key == "itemscope" {
				return true
			}
		}
	}
	return false
}

func readProbe(el *goquery.Selection, p probe) string {
	for _, attr := range p.attrs {
		v, ok := el.Attr(attr)
		if !ok {
			continue
		}
		// Inline data: URIs are lazy-loading placeholders, not the real asset.
		if v = strings.TrimSpace(v); v != "" && !hasDataScheme(v) {
			return v
		}
	}
	if p.text {
		return FlattenText(el)
	}
	return ""
}

func hasDataScheme(v string) bool {
	return len(v) >= 5 && strings.EqualFold(v[:5], "data:")
}
