package models

// Store struct holds the display name and the promotional pages to visit for it.
type Store struct {
	Name string   `mapstructure:"name" json:"name"`
	URLs []string `mapstructure:"urls" json:"urls"`
	// Render marks stores whose pages only show offers after JavaScript runs.
	Render bool `mapstructure:"render" json:"render,omitempty"`
}

// Card is a heuristic guess at one product listing within a page.
// URLs are kept exactly as found in the markup and may be relative.
type Card struct {
	Title     string
	PriceText string
	ImageURL  string
	LinkURL   string
	RawText   string
}

// Match is a card (or a fallback text block) tagged with the keyword that selected it.
// Block matches carry the block text in Card.RawText and nothing else.
type Match struct {
	Card    Card
	Keyword string
	// FromBlock is set when the match came from the text-block fallback.
	FromBlock bool
}

// ErrorProduct is the product name used for records standing in for a failed page.
const ErrorProduct = "ERROR"

// Deal represents one detected promotion captured during a run.
//
// swagger:model Deal
type Deal struct {
	// capture date, YYYY-MM-DD
	//
	// required: true
	Date string `json:"date" gorm:"type:varchar(10);primaryKey"`
	// the name of the store
	//
	// required: true
	Store string `json:"store" gorm:"type:varchar(100);primaryKey"`
	// the product title, or the keyword that matched when no title was found
	//
	// required: true
	Product string `json:"product" gorm:"type:varchar(255)"`
	// numeric price without the currency sign
	Price string `json:"price" gorm:"type:varchar(16)"`
	// unit or multi-buy descriptor, e.g. "/lb" or "2 for $5"
	Unit string `json:"unit" gorm:"type:varchar(64)"`
	// the normalized promotional text
	PromoText string `json:"promoText" gorm:"type:text"`
	// reserved, never filled at capture time
	ValidFrom string `json:"validFrom" gorm:"type:varchar(10)"`
	// reserved, never filled at capture time
	ValidTo string `json:"validTo" gorm:"type:varchar(10)"`
	// the canonical page or product URL
	URL string `json:"url" gorm:"type:varchar(2048)"`
	// content-derived identifier, unique per store within a run
	//
	// required: true
	ID string `json:"id" gorm:"type:char(40);primaryKey"`
	// absolute image URL
	ImageURL string `json:"imageURL" gorm:"type:varchar(2048)"`
	// absolute product URL
	ProductURL string `json:"productURL" gorm:"type:varchar(2048)"`
}

// IsError reports whether the record stands in for a failed page.
func (d Deal) IsError() bool {
	return d.Product == ErrorProduct
}

// CSVHeader is the column order used by every CSV the scraper writes.
var CSVHeader = []string{
	"date", "store", "product", "price", "unit", "promo_text",
	"valid_from", "valid_to", "url", "id", "image_url", "product_url",
}

// CSVRecord returns the record's fields in CSVHeader order.
func (d Deal) CSVRecord() []string {
	return []string{
		d.Date, d.Store, d.Product, d.Price, d.Unit, d.PromoText,
		d.ValidFrom, d.ValidTo, d.URL, d.ID, d.ImageURL, d.ProductURL,
	}
}

// DealFromCSV is the inverse of CSVRecord. Short rows leave trailing fields empty,
// so history files written before image/product columns existed still load.
func DealFromCSV(rec []string) Deal {
	field := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	return Deal{
		Date:       field(0),
		Store:      field(1),
		Product:    field(2),
		Price:      field(3),
		Unit:       field(4),
		PromoText:  field(5),
		ValidFrom:  field(6),
		ValidTo:    field(7),
		URL:        field(8),
		ID:         field(9),
		ImageURL:   field(10),
		ProductURL: field(11),
	}
}

// StoreDeals groups a store's records in the order they were produced.
type StoreDeals struct {
	Store string
	Deals []Deal
}
