package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ImageCount is the number of images every listing is created with.
const ImageCount = 6

type Availability string

const (
	Available Availability = "available"
	Rented    Availability = "rented"
)

// ParseAvailability accepts only the two states the service knows about.
func ParseAvailability(s string) (Availability, error) {
	switch Availability(s) {
	case Available, Rented:
		return Availability(s), nil
	default:
		return "", fmt.Errorf("unknown availability %q", s)
	}
}

// Toggle returns the other availability state.
func (a Availability) Toggle() Availability {
	if a == Rented {
		return Available
	}
	return Rented
}

type PaymentPeriod string

const (
	Yearly  PaymentPeriod = "yearly"
	Monthly PaymentPeriod = "monthly"
	Weekly  PaymentPeriod = "weekly"
)

var PaymentPeriods = []PaymentPeriod{Yearly, Monthly, Weekly}

func (p PaymentPeriod) Valid() bool {
	switch p {
	case Yearly, Monthly, Weekly:
		return true
	}
	return false
}

type Listing struct {
	ID            string          `json:"_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Location      string          `json:"location"`
	Bedroom       int             `json:"bedroom"`
	LivingRoom    int             `json:"livingRoom"`
	Toilet        int             `json:"toilet"`
	Kitchen       int             `json:"kitchen"`
	Price         decimal.Decimal `json:"price"`
	PaymentPeriod PaymentPeriod   `json:"paymentPeriod"`
	Availability  Availability    `json:"availability"`
	Images        []string        `json:"images"`
}

// Cover returns the first image reference, which the dashboard shows as the
// listing thumbnail.
func (l *Listing) Cover() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// Totals are the landlord-wide aggregate counts reported with every page.
type Totals struct {
	Total     int
	Available int
	Rented    int
}

// Page is one server page of the landlord's listings.
type Page struct {
	Index      int
	TotalPages int
	Items      []Listing
	Totals     Totals
}

// Empty reports whether the landlord has no listings at all, independent of
// which page was requested.
func (p *Page) Empty() bool {
	return p.Totals.Total == 0
}

// ListingFields are the validated scalar fields of a listing creation request.
type ListingFields struct {
	Title         string
	Description   string
	Location      string
	Bedroom       int
	LivingRoom    int
	Toilet        int
	Kitchen       int
	Price         decimal.Decimal
	PaymentPeriod PaymentPeriod
}

// FormInput is the raw text of the creation form, kept exactly as typed so a
// failed submission can be retried without re-entering anything.
type FormInput struct {
	Title         string
	Description   string
	Location      string
	Bedroom       string
	LivingRoom    string
	Toilet        string
	Kitchen       string
	Price         string
	PaymentPeriod string
}

// Blank reports whether nothing has been typed yet.
func (f FormInput) Blank() bool {
	return f == FormInput{}
}
