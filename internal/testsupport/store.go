package testsupport

import (
	"testing"

	"rustactions/internal/config"
	"rustactions/internal/items"
	"rustactions/internal/logging"
)

// MustOpenItems opens the item store for cfg and seeds it with recs.
func MustOpenItems(t testing.TB, cfg *config.Config, recs ...items.Record) *items.Store {
	t.Helper()

	store, err := items.Open(cfg.ItemDatabasePath(), logging.NewNop())
	if err != nil {
		t.Fatalf("items.Open: %v", err)
	}
	if len(recs) > 0 {
		if _, _, err := store.UpsertMany(recs); err != nil {
			t.Fatalf("UpsertMany: %v", err)
		}
	}
	return store
}

// SampleItems returns a small craftable catalogue.
func SampleItems() []items.Record {
	return []items.Record{
		{ItemID: "wood", Name: "Wood", Category: "Resources", StackSize: 1000, NumericID: -151838493, Shortname: "wood", Ingredients: []items.Ingredient{}},
		{ItemID: "stones", Name: "Stones", Category: "Resources", StackSize: 1000, NumericID: -2099697608, Shortname: "stones", Ingredients: []items.Ingredient{}},
		{ItemID: "stone_hatchet", Name: "Stone Hatchet", Category: "Tools", Description: "A basic stone hatchet.", StackSize: 1, CraftTime: 30, NumericID: -262590403, Shortname: "stonehatchet", Ingredients: []items.Ingredient{{ItemID: "wood", Quantity: 200}, {ItemID: "stones", Quantity: 100}}},
		{ItemID: "stone_pickaxe", Name: "Stone Pickaxe", Category: "Tools", StackSize: 1, CraftTime: 30, NumericID: 171931394, Shortname: "stone.pickaxe", Ingredients: []items.Ingredient{{ItemID: "wood", Quantity: 200}, {ItemID: "stones", Quantity: 100}}},
		{ItemID: "bandage", Name: "Bandage", Category: "Medical", StackSize: 3, CraftTime: 5, NumericID: 1079279582, Shortname: "bandage", Ingredients: []items.Ingredient{{ItemID: "cloth", Quantity: 4}}},
	}
}
