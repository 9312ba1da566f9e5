package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"grocery_deals/internal/models"
	"grocery_deals/internal/parser"
)

// DealID hashes the identifying fields of a record. Two records are the same
// deal exactly when store, product, price and URL are equal. Each field is
// length-prefixed, so no field content can shift a boundary.
func DealID(store, product, price, dealURL string) string {
	var b strings.Builder
	for _, field := range []string{store, product, price, dealURL} {
		fmt.Fprintf(&b, "%d:%s;", len(field), field)
	}
	return hashText(b.String())
}

func hashText(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// resolveURL makes ref absolute against base. Empty refs stay empty and refs
// that cannot be parsed are returned unchanged.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// BuildDeals converts one page's matches into records. Card matches take their
// product from the card title and their price from the card's price text; block
// matches are named after the keyword and get price and unit parsed from the text.
func BuildDeals(date, store, pageURL string, matches []models.Match) []models.Deal {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	deals := make([]models.Deal, 0, len(matches))
	for _, m := range matches {
		card := m.Card
		deal := models.Deal{
			Date:      date,
			Store:     store,
			Product:   parser.Normalize(card.Title),
			PromoText: parser.Normalize(card.RawText),
		}
		if deal.Product == "" {
			deal.Product = m.Keyword
		}

		if m.FromBlock {
			deal.Price, deal.Unit = parser.ParsePriceUnit(deal.PromoText)
		} else {
			deal.Price = parser.CardPrice(parser.Normalize(card.PriceText))
			deal.ImageURL = resolveURL(base, card.ImageURL)
			deal.ProductURL = resolveURL(base, card.LinkURL)
		}

		deal.URL = deal.ProductURL
		if deal.URL == "" {
			deal.URL = pageURL
		}
		deal.ID = DealID(store, deal.Product, deal.Price, deal.URL)
		deals = append(deals, deal)
	}
	return deals
}

// Dedup drops records whose ID was already seen, keeping the first occurrence
// and the input order.
func Dedup(deals []models.Deal) []models.Deal {
	seen := make(map[string]bool, len(deals))
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// ErrorDeal stands in for a page that could not be fetched or parsed.
func ErrorDeal(date, store, pageURL string, err error) models.Deal {
	description := fmt.Sprintf("%s -> %v", pageURL, err)
	return models.Deal{
		Date:      date,
		Store:     store,
		Product:   models.ErrorProduct,
		PromoText: description,
		URL:       pageURL,
		ID:        hashText(description),
	}
}
