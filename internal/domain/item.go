package domain

import (
	"errors"
	"strings"
	"time"
)

// Item-specific validation errors
var (
	// ErrItemBarcodeEmpty is returned when an item has no barcode.
	ErrItemBarcodeEmpty = errors.New("item barcode cannot be empty")

	// ErrItemCopiesInvalid is returned when an item's copy count is not positive.
	ErrItemCopiesInvalid = errors.New("item must have at least one copy")

	// ErrItemDurationInvalid is returned when an item's loan duration is not positive.
	ErrItemDurationInvalid = errors.New("item loan duration must be at least one hour")
)

// Item is an entry in the registry: something that can be loaned digitally.
// Title, author and the other descriptive fields are cached from the catalog
// when the item is added and are never re-queried.
type Item struct {
	Barcode      string    `json:"barcode"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Year         string    `json:"year,omitempty"`
	Edition      string    `json:"edition,omitempty"`
	CatalogID    string    `json:"catalog_id,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	NumCopies    int       `json:"num_copies"`
	Duration     int       `json:"duration"` // loan length in hours
	Ready        bool      `json:"ready"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewItem creates a not-yet-ready Item with the given barcode, copy count and
// loan duration in hours.
func NewItem(barcode string, numCopies, durationHours int) (*Item, error) {
	now := time.Now().UTC()
	item := &Item{
		Barcode:   strings.TrimSpace(barcode),
		NumCopies: numCopies,
		Duration:  durationHours,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the Item has valid data.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Barcode) == "" {
		return ErrItemBarcodeEmpty
	}

	if i.NumCopies < 1 {
		return ErrItemCopiesInvalid
	}

	if i.Duration < 1 {
		return ErrItemDurationInvalid
	}

	return nil
}

// LoanPeriod returns the configured loan length.
func (i *Item) LoanPeriod() time.Duration {
	return time.Duration(i.Duration) * time.Hour
}
