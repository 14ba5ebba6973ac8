package models

import "errors"

// ErrMonitorExists is returned when adding a monitor whose (channel, name)
// pair is already registered.
var ErrMonitorExists = errors.New("monitor already exists")

// Deal represents one structured listing entry extracted from a source page.
// It is built fresh on every poll and never persisted; only its ID survives
// in the seen store.
type Deal struct {
	ID          string `validate:"required"`
	URL         string `validate:"required,url"`
	StoreURL    string `validate:"omitempty,url"`
	Title       string `validate:"required"`
	Price       string
	OldPrice    string
	Discount    string
	Store       string
	Image       string
	Code        string
	Description string
}

// Merge backfills empty fields of d from other. Fields already populated are
// never overwritten, so enrichment passes can run in any order.
func (d *Deal) Merge(other Deal) {
	if d.StoreURL == "" {
		d.StoreURL = other.StoreURL
	}
	if d.Title == "" {
		d.Title = other.Title
	}
	if d.Price == "" {
		d.Price = other.Price
	}
	if d.OldPrice == "" {
		d.OldPrice = other.OldPrice
	}
	if d.Discount == "" {
		d.Discount = other.Discount
	}
	if d.Store == "" {
		d.Store = other.Store
	}
	if d.Image == "" {
		d.Image = other.Image
	}
	if d.Code == "" {
		d.Code = other.Code
	}
	if d.Description == "" {
		d.Description = other.Description
	}
}

// NeedsDetail reports whether a detail-page fetch could still fill key fields.
func (d *Deal) NeedsDetail() bool {
	return d.Image == "" || d.Price == "" || d.Store == "" || d.StoreURL == ""
}
