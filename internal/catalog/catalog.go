// Package catalog loads the static Tonie reference dataset. The catalog is
// built once at startup and shared read-only; callers receive a handle rather
// than reaching for global state.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Item is one immutable catalog entry.
type Item struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Series  string   `json:"series,omitempty"`
	Aliases []string `json:"aliases,omitempty"`

	// AvailabilityState marks retail availability ("orderable",
	// "endOfLife", ...). Discontinued figures trade at collector premiums,
	// which raises their plausible price ceiling.
	AvailabilityState string `json:"availability_state,omitempty"`
}

// Discontinued reports whether the item is no longer sold at retail.
func (i Item) Discontinued() bool {
	switch i.AvailabilityState {
	case "endOfLife", "discontinued":
		return true
	}
	return false
}

// Catalog is the immutable, ordered set of catalog items.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// New builds a catalog from an ordered item list. Later duplicates of an ID
// are ignored.
func New(items []Item) *Catalog {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, item := range items {
		if item.ID == "" || item.Title == "" {
			continue
		}
		if _, exists := c.byID[item.ID]; exists {
			continue
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c
}

// Load reads the catalog dataset from a JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := New(items)
	if c.Len() == 0 {
		return nil, fmt.Errorf("catalog %s contains no usable items", path)
	}
	return c, nil
}

// Items returns the catalog in stable order. Callers must not mutate it.
func (c *Catalog) Items() []Item {
	return c.items
}

// ByID looks up one item by its catalog ID.
func (c *Catalog) ByID(id string) (Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Len returns the number of catalog items.
func (c *Catalog) Len() int {
	return len(c.items)
}
