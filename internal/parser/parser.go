package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"grocery_deals/internal/models"
)

// PageResult is what one page contributed before records are built.
type PageResult struct {
	// Strategy names the extraction step that produced the matches.
	Strategy string
	// Candidates counts the cards or blocks that were keyword-tested.
	Candidates int
	Matches    []models.Match
}

// DealParser defines the contract for turning a fetched page into keyword
// matches. It knows how to read the HTML structure.
type DealParser interface {
	ParsePage(ctx context.Context, reader io.Reader, keywords Keywords) (*PageResult, error)
}

// heuristicParser is the concrete implementation of the extraction chain.
type heuristicParser struct {
}

// NewDealParser creates a new parser instance.
func NewDealParser() DealParser {
	return &heuristicParser{}
}

// ParsePage parses the HTML, runs the card strategies and matches the cards
// against the keywords. Only when no strategy yields a card is the page
// flattened into text blocks and those are matched instead.
func (p *heuristicParser) ParsePage(ctx context.Context, reader io.Reader, keywords Keywords) (*PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Parse the HTML document
	root, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	// 2. Card strategies, most precise first
	if cards, strategy := ExtractCards(doc); len(cards) > 0 {
		return &PageResult{
			Strategy:   strategy,
			Candidates: len(cards),
			Matches:    MatchCards(cards, keywords),
		}, nil
	}

	// 3. Nothing card-like on the page: fall back to text blocks
	blocks := ExtractBlocks(doc)
	return &PageResult{
		Strategy:   StrategyBlocks,
		Candidates: len(blocks),
		Matches:    MatchBlocks(blocks, keywords),
	}, nil
}
