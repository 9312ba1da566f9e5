package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"grocery_deals/internal/models"
)

// CardStrategy produces candidate cards from a document, in document order.
// An empty result hands the document to the next strategy.
type CardStrategy struct {
	Name    string
	Extract func(doc *goquery.Document) []models.Card
}

// Strategy names, as reported by ExtractCards and logged by the service.
const (
	StrategyStructured = "structured"
	StrategyGeneric    = "generic"
	StrategyPage       = "page"
	StrategyBlocks     = "blocks"
)

// CardStrategies is the extraction chain, most precise first.
var CardStrategies = []CardStrategy{
	{Name: StrategyStructured, Extract: structuredCards},
	{Name: StrategyGeneric, Extract: genericCards},
	{Name: StrategyPage, Extract: pageCards},
}

// ExtractCards runs the strategy chain and returns the cards of the first
// strategy that finds any, with that strategy's name. It returns (nil, "")
// when no strategy finds a card.
func ExtractCards(doc *goquery.Document) ([]models.Card, string) {
	for _, s := range CardStrategies {
		if cards := s.Extract(doc); len(cards) > 0 {
			return cards, s.Name
		}
	}
	return nil, ""
}

// productAttrs carry a type for the element: schema.org microdata, RDFa, or an
// explicit data attribute. Each holds whitespace-separated type tokens.
var productAttrs = []string{"itemtype", "typeof", "data-itemtype", "data-type"}

// isProductType reports whether a type token names a Product. Vocabulary URLs
// ("https://schema.org/Product") and CURIEs ("schema:Product") are reduced to
// their last segment, so "products" or "product-grid" do not count.
func isProductType(token string) bool {
	token = strings.TrimRight(token, "/")
	if i := strings.LastIndexAny(token, "/#:"); i >= 0 {
		token = token[i+1:]
	}
	return strings.EqualFold(token, "product")
}

func isProductMarked(sel *goquery.Selection) bool {
	for _, attr := range productAttrs {
		v, ok := sel.Attr(attr)
		if !ok {
			continue
		}
		for _, token := range strings.Fields(v) {
			if isProductType(token) {
				return true
			}
		}
	}
	return false
}

func structuredCards(doc *goquery.Document) []models.Card {
	var cards []models.Card
	doc.Find("[itemtype], [typeof], [data-itemtype], [data-type]").Each(func(_ int, sel *goquery.Selection) {
		if !isProductMarked(sel) {
			return
		}
		cards = append(cards, models.Card{
			Title:     firstValue(sel, structuredTitleProbes),
			PriceText: firstValue(sel, priceProbes),
			ImageURL:  firstValue(sel, imageProbes),
			LinkURL:   firstValue(sel, linkProbes),
			RawText:   FlattenText(sel),
		})
	})
	return cards
}

const containerSelector = "div, li, article, section"

// qualifies reports whether a container looks like a product tile: it mentions a
// price or promotion and has an image or something title-like.
func qualifies(sel *goquery.Selection, text string) bool {
	if !HasPromo(text) {
		return false
	}
	return sel.Find("img").Length() > 0 || sel.Find(titleHints).Length() > 0
}

func genericCards(doc *goquery.Document) []models.Card {
	containers := doc.Find(containerSelector)

	qualified := make(map[*html.Node]bool)
	texts := make(map[*html.Node]string)
	containers.Each(func(_ int, sel *goquery.Selection) {
		text := FlattenText(sel)
		if qualifies(sel, text) {
			qualified[sel.Nodes[0]] = true
			texts[sel.Nodes[0]] = text
		}
	})

	var cards []models.Card
	containers.Each(func(_ int, sel *goquery.Selection) {
		node := sel.Nodes[0]
		if !qualified[node] || hasQualifiedDescendant(sel, qualified) {
			return
		}
		text := texts[node]

		price := firstValue(sel, priceProbes)
		if price == "" {
			price = findPromo(text)
		}
		link := firstValue(sel, linkProbes)
		if link == "" {
			link, _ = sel.Closest("a[href]").Attr("href")
		}
		cards = append(cards, models.Card{
			Title:     firstValue(sel, genericTitleProbes),
			PriceText: price,
			ImageURL:  firstValue(sel, imageProbes),
			LinkURL:   strings.TrimSpace(link),
			RawText:   text,
		})
	})
	return cards
}

// hasQualifiedDescendant keeps wrappers such as a whole product grid from
// becoming one giant card when the tiles inside already qualify.
func hasQualifiedDescendant(sel *goquery.Selection, qualified map[*html.Node]bool) bool {
	found := false
	sel.Find(containerSelector).EachWithBreak(func(_ int, child *goquery.Selection) bool {
		found = qualified[child.Nodes[0]]
		return !found
	})
	return found
}

// Open-Graph lookups, by property and by name.
var (
	ogTitleSelector = `meta[property="og:title"], meta[name="og:title"]`
	ogImageSelector = `meta[property="og:image"], meta[name="og:image"]`
)

func metaContent(doc *goquery.Document, selector string) string {
	var value string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		value = Normalize(sel.AttrOr("content", ""))
		return value == ""
	})
	return value
}

func pageCards(doc *goquery.Document) []models.Card {
	title := metaContent(doc, ogTitleSelector)
	image := metaContent(doc, ogImageSelector)
	if title == "" && image == "" {
		return nil
	}
	return []models.Card{{
		Title:    title,
		ImageURL: image,
		RawText:  FlattenText(doc.Find("body")),
	}}
}
