package recipes_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"rustactions/internal/items"
	"rustactions/internal/logging"
	"rustactions/internal/recipes"
)

func seededStore(t *testing.T) (*items.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "itemDatabase.json")
	store, err := items.Open(path, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	seed := []items.Record{
		{ItemID: "wood", Name: "Wood", Category: "Resources", StackSize: 1000, NumericID: -151838493, Shortname: "wood"},
		{ItemID: "stones", Name: "Stones", Category: "Resources", StackSize: 1000, NumericID: -2099697608, Shortname: "stones"},
		{ItemID: "stone_hatchet", Name: "Stone Hatchet", Category: "Tools", StackSize: 1, CraftTime: 30, NumericID: -262590403, Shortname: "stonehatchet"},
		{ItemID: "night_vision_goggles", Name: "Night Vision Goggles", Category: "Attire", StackSize: 1, NumericID: -1518883088, Shortname: "nightvisiongoggles"},
		{ItemID: "rocket_launcher", Name: "Rocket Launcher", Category: "Weapons", StackSize: 1, NumericID: 442886268, Shortname: "rocket.launcher"},
	}
	if _, _, err := store.UpsertMany(seed); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
	return store, path
}

func TestMergeResolvesAndReports(t *testing.T) {
	store, _ := seededStore(t)
	src := recipes.Source{Recipes: []recipes.Recipe{
		{ItemID: "-262590403", Shortname: "stonehatchet", CraftTime: 25, UserCraftable: true, Ingredients: []recipes.Ingredient{
			{ItemID: "-151838493", Shortname: "wood", Amount: 200},
			{ItemID: "-2099697608", Shortname: "stones", Amount: 100},
		}},
		{ItemID: "1", Shortname: "hat.nvg.item", CraftTime: 10, UserCraftable: true, Ingredients: []recipes.Ingredient{
			{ItemID: "999", Shortname: "techparts", Amount: 2},
		}},
		{ItemID: "2", Shortname: "rocket_launcher.item", UserCraftable: true, Ingredients: []recipes.Ingredient{
			{ItemID: "wood", Amount: 0.4},
			{ItemID: "stones", Amount: 1.6},
		}},
		{ItemID: "3", Shortname: "unknown.thing"},
	}}

	report, err := recipes.Merge(store, src, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.Matched != 3 || report.Unmatched != 1 || report.Updated != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.UnmatchedIDs) != 1 || report.UnmatchedIDs[0] != "unknown.thing" {
		t.Fatalf("unexpected unmatched ids: %v", report.UnmatchedIDs)
	}

	hatchet, err := store.Get("stone_hatchet")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []items.Ingredient{{ItemID: "wood", Quantity: 200}, {ItemID: "stones", Quantity: 100}}
	if len(hatchet.Ingredients) != 2 || hatchet.Ingredients[0] != want[0] || hatchet.Ingredients[1] != want[1] {
		t.Fatalf("unexpected ingredients: %+v", hatchet.Ingredients)
	}
	if hatchet.CraftTime != 25 {
		t.Fatalf("expected craft time from recipe, got %v", hatchet.CraftTime)
	}

	nvg, _ := store.Get("night_vision_goggles")
	if len(nvg.Ingredients) != 1 || nvg.Ingredients[0].ItemID != "999" {
		t.Fatalf("expected soft reference for unresolved ingredient, got %+v", nvg.Ingredients)
	}

	launcher, _ := store.Get("rocket_launcher")
	if len(launcher.Ingredients) != 1 || launcher.Ingredients[0] != (items.Ingredient{ItemID: "stones", Quantity: 2}) {
		t.Fatalf("expected rounded amounts with zero dropped, got %+v", launcher.Ingredients)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	store, path := seededStore(t)
	src := recipes.Source{Recipes: []recipes.Recipe{
		{ItemID: "stone_hatchet", UserCraftable: true, Ingredients: []recipes.Ingredient{{ItemID: "wood", Amount: 200}}},
	}}
	first, err := recipes.Merge(store, src, nil)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	if first.Updated != 1 {
		t.Fatalf("expected one update, got %+v", first)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	second, err := recipes.Merge(store, src, nil)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if second.Updated != 0 || second.Matched != 1 {
		t.Fatalf("expected no updates on repeat, got %+v", second)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("expected database file unchanged after identical merge")
	}
}

func TestMergePrefersCraftableFastestRecipe(t *testing.T) {
	store, _ := seededStore(t)
	src := recipes.Source{Recipes: []recipes.Recipe{
		{ItemID: "stone_hatchet", CraftTime: 5, UserCraftable: false, Ingredients: []recipes.Ingredient{{ItemID: "wood", Amount: 1}}},
		{ItemID: "stone_hatchet", CraftTime: 40, UserCraftable: true, Ingredients: []recipes.Ingredient{{ItemID: "wood", Amount: 2}}},
		{ItemID: "stone_hatchet", CraftTime: 20, UserCraftable: true, Ingredients: []recipes.Ingredient{{ItemID: "wood", Amount: 3}}},
	}}
	report, err := recipes.Merge(store, src, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.Matched != 3 || report.Updated != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	rec, _ := store.Get("stone_hatchet")
	if rec.CraftTime != 20 || rec.Ingredients[0].Quantity != 3 {
		t.Fatalf("expected fastest craftable recipe, got %+v", rec)
	}
}

func TestMergeCallerMapping(t *testing.T) {
	store, _ := seededStore(t)
	src := recipes.Source{Recipes: []recipes.Recipe{
		{ItemID: "12345", Shortname: "hatchet.stone.legacy", UserCraftable: true, Ingredients: []recipes.Ingredient{{ItemID: "wood", Amount: 5}}},
	}}
	mapping := recipes.ParseMapping([]string{"hatchet.stone.legacy = stonehatchet", "broken", "=x"})
	if len(mapping) != 1 {
		t.Fatalf("expected one parsed mapping, got %v", mapping)
	}
	report, err := recipes.Merge(store, src, mapping)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.Matched != 1 {
		t.Fatalf("expected mapping to resolve recipe, got %+v", report)
	}
}

func TestLoadSourceAcceptsNumericIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craftingData.json")
	doc := map[string]any{
		"recipes": []any{
			map[string]any{
				"item_id":        -262590403,
				"shortname":      "stonehatchet",
				"craft_time":     30.0,
				"user_craftable": true,
				"ingredients":    []any{map[string]any{"item_id": -151838493, "shortname": "wood", "amount": 200}},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := recipes.LoadSource(path)
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if len(src.Recipes) != 1 || src.Recipes[0].ItemID != "-262590403" || src.Recipes[0].Ingredients[0].ItemID != "-151838493" {
		t.Fatalf("unexpected source: %+v", src)
	}
	if n, ok := src.Recipes[0].ItemID.Numeric(); !ok || n != -262590403 {
		t.Fatalf("Numeric() = %d, %v", n, ok)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := recipes.LoadSource(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFromRecordsSkipsItemsWithoutIngredients(t *testing.T) {
	recs := []items.Record{
		{ItemID: "wood", StackSize: 1000},
		{ItemID: "stone_hatchet", NumericID: -262590403, StackSize: 1, Ingredients: []items.Ingredient{{ItemID: "wood", Quantity: 200}}},
	}
	src := recipes.FromRecords(recs)
	if len(src.Recipes) != 1 || src.Recipes[0].ItemID != "-262590403" {
		t.Fatalf("unexpected export: %+v", src)
	}
}
