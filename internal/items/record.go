package items

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"rustactions/internal/services"
)

// Ingredient is a soft reference to another item and the quantity consumed.
type Ingredient struct {
	ItemID   string `json:"item_id" yaml:"item_id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Record is a single craftable or collectible item.
type Record struct {
	ItemID      string       `json:"item_id" yaml:"item_id"`
	Name        string       `json:"name" yaml:"name"`
	Category    string       `json:"category" yaml:"category"`
	Description string       `json:"description" yaml:"description"`
	StackSize   int          `json:"stack_size" yaml:"stack_size"`
	CraftTime   float64      `json:"craft_time" yaml:"craft_time"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`

	// NumericID is the game's itemid used by craft.add/craft.cancel.
	NumericID int64  `json:"numeric_id,omitempty" yaml:"numeric_id,omitempty"`
	Shortname string `json:"shortname,omitempty" yaml:"shortname,omitempty"`
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Metadata describes the database document as a whole.
type Metadata struct {
	ItemCount   int       `json:"item_count"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
	Source      string    `json:"source,omitempty"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Category must match exactly.
	Category string
	// Query is a case-insensitive substring of the name or description.
	Query string
}

func (f Filter) matches(rec Record) bool {
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(rec.Name), q) ||
			strings.Contains(strings.ToLower(rec.Description), q)
	}
	return true
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Name        *string       `json:"name,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Description *string       `json:"description,omitempty"`
	StackSize   *int          `json:"stack_size,omitempty"`
	CraftTime   *float64      `json:"craft_time,omitempty"`
	Ingredients *[]Ingredient `json:"ingredients,omitempty"`
	NumericID   *int64        `json:"numeric_id,omitempty"`
	Shortname   *string       `json:"shortname,omitempty"`
	Image       *string       `json:"image,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

func (p Patch) apply(rec Record) Record {
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.StackSize != nil {
		rec.StackSize = *p.StackSize
	}
	if p.CraftTime != nil {
		rec.CraftTime = *p.CraftTime
	}
	if p.Ingredients != nil {
		rec.Ingredients = slices.Clone(*p.Ingredients)
	}
	if p.NumericID != nil {
		rec.NumericID = *p.NumericID
	}
	if p.Shortname != nil {
		rec.Shortname = *p.Shortname
	}
	if p.Image != nil {
		rec.Image = *p.Image
	}
	return rec
}

// Stats summarizes the store contents.
type Stats struct {
	TotalCount   int            `json:"total_count"`
	PerCategory  map[string]int `json:"per_category_count"`
	AvgCraftTime float64        `json:"avg_craft_time"`
}

// Validate checks the record invariants enforced on every write.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ItemID) == "" {
		return services.Validation("items", "item_id must not be empty")
	}
	if hasControl(r.ItemID) {
		return services.Validation("items", fmt.Sprintf("item_id %q must not contain control characters", r.ItemID))
	}
	if hasControl(r.Name) {
		return services.Validation("items", fmt.Sprintf("%s: name must not contain control characters", r.ItemID))
	}
	if r.StackSize <= 0 {
		return services.Validation("items", fmt.Sprintf("%s: stack_size must be positive", r.ItemID))
	}
	if r.CraftTime < 0 {
		return services.Validation("items", fmt.Sprintf("%s: craft_time must not be negative", r.ItemID))
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.ItemID) == "" {
			return services.Validation("items", fmt.Sprintf("%s: ingredient item_id must not be empty", r.ItemID))
		}
		if ing.Quantity <= 0 {
			return services.Validation("items", fmt.Sprintf("%s: ingredient %s quantity must be positive", r.ItemID, ing.ItemID))
		}
	}
	return nil
}

// hasControl reports whether s contains line breaks or other control
// characters. Names end up in keys.cfg comments, one per line.
func hasControl(s string) bool {
	return strings.ContainsFunc(s, unicode.IsControl)
}

// Equal reports whether two records hold the same values.
func (r Record) Equal(o Record) bool {
	return r.ItemID == o.ItemID &&
		r.Name == o.Name &&
		r.Category == o.Category &&
		r.Description == o.Description &&
		r.StackSize == o.StackSize &&
		r.CraftTime == o.CraftTime &&
		r.NumericID == o.NumericID &&
		r.Shortname == o.Shortname &&
		r.Image == o.Image &&
		slices.Equal(r.Ingredients, o.Ingredients)
}

func (r Record) clone() Record {
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	} else {
		r.Ingredients = slices.Clone(r.Ingredients)
	}
	return r
}
