package catalog

import (
	"context"
	"errors"
	"sync"
)

// ErrRecordNotFound is returned when the catalog has no record for a barcode.
var ErrRecordNotFound = errors.New("catalog record not found")

// Record is the subset of a catalog record cached on an item.
type Record struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Publisher    string `json:"publisher"`
	Edition      string `json:"edition"`
	Year         string `json:"year"`
	ISBN         string `json:"isbn_issn"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Lookup retrieves catalog records by item barcode.
type Lookup interface {
	// FetchRecord returns the record for barcode, or ErrRecordNotFound.
	FetchRecord(ctx context.Context, barcode string) (*Record, error)
}

// StaticLookup serves records from memory. It backs development setups
// without a catalog server, and tests.
type StaticLookup struct {
	mu          sync.RWMutex
	records     map[string]Record
	placeholder bool
}

// NewStaticLookup returns a lookup that knows exactly the given records,
// keyed by barcode.
func NewStaticLookup(records map[string]Record) *StaticLookup {
	l := &StaticLookup{records: make(map[string]Record, len(records))}
	for barcode, r := range records {
		l.records[barcode] = r
	}
	return l
}

// NewUnconfiguredLookup returns a lookup that answers every barcode it does
// not know with a placeholder record, so items can still be added when no
// catalog is configured.
func NewUnconfiguredLookup() *StaticLookup {
	l := NewStaticLookup(nil)
	l.placeholder = true
	return l
}

// Add registers or replaces the record for barcode.
func (l *StaticLookup) Add(barcode string, r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[barcode] = r
}

// FetchRecord implements Lookup.
func (l *StaticLookup) FetchRecord(ctx context.Context, barcode string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	r, ok := l.records[barcode]
	l.mu.RUnlock()

	if ok {
		return &r, nil
	}
	if l.placeholder {
		const unset = "catalog not configured"
		return &Record{ID: barcode, Title: unset, Author: unset}, nil
	}
	return nil, ErrRecordNotFound
}
