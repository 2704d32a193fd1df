package models

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sofa is a catalogue product as served by the listing endpoint
type Sofa struct {
	Id            int64   `json:"id"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price"`
	Quantity      int     `json:"quantity"`
	Discount      float64 `json:"discount"`
	Description   *string `json:"description"`

	// Only present on results of the matching endpoint
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// Key returns the identifier used as a rendering key
func (s Sofa) Key() string {
	return strconv.FormatInt(s.Id, 10)
}

// DiscountedPrice is the price after the discount percentage is applied
func DiscountedPrice(price, discount float64) float64 {
	return price - (price * discount / 100)
}

// Card text helpers shared by the terminal renderers

const DeliveryEstimate = "3-5 days"

func (s Sofa) DisplayDiscount() string {
	return fmt.Sprintf("Discount: %s%%", strconv.FormatFloat(s.Discount, 'f', -1, 64))
}

func (s Sofa) DisplayDescription() string {
	if s.Description == nil || strings.TrimSpace(*s.Description) == "" {
		return "No description available"
	}
	return *s.Description
}

func (s Sofa) DisplayPrice() string {
	return fmt.Sprintf("$%.2f", s.Price)
}

// MatchPercentage floors the similarity score. ok is false for plain listing items.
func (s Sofa) MatchPercentage() (int, bool) {
	if s.SimilarityScore == nil {
		return 0, false
	}
	return int(math.Floor(*s.SimilarityScore)), true
}

// SofaPage is one page of the listing endpoint
type SofaPage struct {
	Count    *int     `json:"count,omitempty"`
	Next     *PageRef `json:"next"`
	Previous *PageRef `json:"previous"`
	Results  []Sofa   `json:"results"`
}

// PageRef points at another page of a listing. Servers send it either as a
// page number or as an absolute URL carrying a page query parameter.
type PageRef struct {
	Page int
	URL  string
}

func (r PageRef) MarshalJSON() ([]byte, error) {
	if r.URL != "" {
		return json.Marshal(r.URL)
	}
	return json.Marshal(r.Page)
}

func (r *PageRef) UnmarshalJSON(data []byte) error {
	var number int
	if err := json.Unmarshal(data, &number); err == nil {
		return r.setPage(number)
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("page reference must be a number or a string: %w", err)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return r.setPage(n)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid page url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("page reference %q is neither a number nor an absolute url", raw)
	}
	// A link without a page parameter is the first page
	page := 1
	if p := u.Query().Get("page"); p != "" {
		if page, err = strconv.Atoi(p); err != nil {
			return fmt.Errorf("invalid page number in %q: %w", raw, err)
		}
	}
	if err := r.setPage(page); err != nil {
		return err
	}
	r.URL = raw
	return nil
}

func (r *PageRef) setPage(page int) error {
	if page < 1 {
		return fmt.Errorf("page number %d must be at least 1", page)
	}
	r.Page = page
	return nil
}

// Match wraps a sofa returned by an image match
type Match struct {
	Sofa Sofa `json:"sofa"`
}

// Quotation is the request of the image upload form
type Quotation struct {
	Budget       float64
	Quantity     int
	DeliveryDate time.Time
	ImagePath    string
}

const DateLayout = "2006-01-02"

func (q Quotation) Validate() error {
	if q.Budget <= 0 {
		return fmt.Errorf("budget must be a positive number")
	}
	if q.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	if q.DeliveryDate.IsZero() {
		return fmt.Errorf("delivery date is required")
	}
	return nil
}

// ErrorResponse is the JSON error body used by the catalogue API
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func (e ErrorResponse) String() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return e.Detail
	}
}
