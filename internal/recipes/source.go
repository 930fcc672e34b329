package recipes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"rustactions/internal/services"
)

// ID accepts either a JSON number or string and keeps the string form.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Numeric returns the id as the game's numeric itemid when it parses as one.
func (id ID) Numeric() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// Ingredient is one input of a recipe as extracted from game assets.
type Ingredient struct {
	ItemID    ID      `json:"item_id"`
	Shortname string  `json:"shortname,omitempty"`
	Amount    float64 `json:"amount"`
}

// Recipe is one crafting blueprint for an item.
type Recipe struct {
	ItemID         ID           `json:"item_id"`
	Shortname      string       `json:"shortname,omitempty"`
	Ingredients    []Ingredient `json:"ingredients"`
	CraftTime      float64      `json:"craft_time"`
	AmountToCreate int          `json:"amount_to_create,omitempty"`
	WorkbenchLevel int          `json:"workbench_level,omitempty"`
	UserCraftable  bool         `json:"user_craftable"`
}

// Source is a crafting data document.
type Source struct {
	Recipes []Recipe `json:"recipes"`
}

// LoadSource reads a crafting data JSON document.
func LoadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, services.Wrap(services.ErrIO, "recipes", "load", "read crafting data", err)
	}
	var src Source
	if err := json.Unmarshal(data, &src); err != nil {
		return Source{}, services.Wrap(services.ErrValidation, "recipes", "load", "parse crafting data", err)
	}
	return src, nil
}
