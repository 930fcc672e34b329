package recipes

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"rustactions/internal/items"
)

// Report summarizes a merge. Updated counts records whose stored value
// changed, so repeating an identical merge reports zero updates.
type Report struct {
	Matched      int      `json:"matched"`
	Unmatched    int      `json:"unmatched"`
	Updated      int      `json:"updated"`
	UnmatchedIDs []string `json:"unmatched_ids,omitempty"`
}

// maxUnmatchedIDs bounds the sample of unresolved recipe ids in a Report.
const maxUnmatchedIDs = 25

// Merge attaches recipe ingredient lists to matching store records. Each
// recipe resolves to a record by item_id, then through mapping (keyed by
// recipe item id or shortname, valued by store item_id or shortname), then
// the game's numeric id, then shortname. When several recipes resolve to the
// same record the best one wins: user craftable first, then the shortest
// craft time, then input order. The store is saved once, and only when a
// record changed.
func Merge(store *items.Store, src Source, mapping map[string]string) (Report, error) {
	var report Report
	err := store.Update(func(b *items.Batch) error {
		idx := newIndex(b.Records(), mapping)

		best := make(map[string]Recipe)
		var order []string
		for _, recipe := range src.Recipes {
			target, ok := idx.resolve(recipe.ItemID, recipe.Shortname)
			if !ok {
				report.Unmatched++
				if len(report.UnmatchedIDs) < maxUnmatchedIDs {
					report.UnmatchedIDs = append(report.UnmatchedIDs, recipeLabel(recipe))
				}
				continue
			}
			report.Matched++
			current, seen := best[target]
			if !seen {
				order = append(order, target)
				best[target] = recipe
				continue
			}
			if better(recipe, current) {
				best[target] = recipe
			}
		}

		for _, target := range order {
			rec, _ := b.Get(target)
			recipe := best[target]
			rec.Ingredients = idx.ingredients(recipe.Ingredients)
			if recipe.CraftTime > 0 {
				rec.CraftTime = recipe.CraftTime
			}
			_, changed, err := b.Put(rec)
			if err != nil {
				return err
			}
			if changed {
				report.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func better(candidate, current Recipe) bool {
	if candidate.UserCraftable != current.UserCraftable {
		return candidate.UserCraftable
	}
	return cmp.Compare(candidate.CraftTime, current.CraftTime) < 0
}

func recipeLabel(r Recipe) string {
	if r.Shortname != "" {
		return r.Shortname
	}
	return string(r.ItemID)
}

type index struct {
	ids         map[string]struct{}
	byNumeric   map[int64]string
	byShortname map[string]string
	mapping     map[string]string
}

func newIndex(recs []items.Record, mapping map[string]string) *index {
	idx := &index{
		ids:         make(map[string]struct{}, len(recs)),
		byNumeric:   make(map[int64]string),
		byShortname: make(map[string]string),
		mapping:     make(map[string]string, len(builtinAliases)+len(mapping)),
	}
	for _, rec := range recs {
		idx.ids[rec.ItemID] = struct{}{}
		if rec.NumericID != 0 {
			idx.byNumeric[rec.NumericID] = rec.ItemID
		}
		if rec.Shortname != "" {
			idx.byShortname[strings.ToLower(rec.Shortname)] = rec.ItemID
		}
	}
	for k, v := range builtinAliases {
		idx.mapping[k] = v
	}
	for k, v := range mapping {
		idx.mapping[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return idx
}

func (idx *index) resolve(id ID, shortname string) (string, bool) {
	key := strings.TrimSpace(string(id))
	shortname = strings.TrimSpace(shortname)

	if _, ok := idx.ids[key]; ok && key != "" {
		return key, true
	}
	for _, k := range []string{key, shortname} {
		if k == "" {
			continue
		}
		if mapped, ok := idx.mapping[k]; ok {
			if target, ok := idx.lookup(mapped); ok {
				return target, true
			}
		}
	}
	if n, ok := id.Numeric(); ok {
		if target, ok := idx.byNumeric[n]; ok {
			return target, true
		}
	}
	if shortname != "" {
		if target, ok := idx.byShortname[strings.ToLower(shortname)]; ok {
			return target, true
		}
		normalized := strings.ReplaceAll(strings.TrimSuffix(shortname, ".item"), "_", ".")
		if target, ok := idx.byShortname[strings.ToLower(normalized)]; ok {
			return target, true
		}
	}
	return "", false
}

// lookup treats v as a store item_id first and a shortname second.
func (idx *index) lookup(v string) (string, bool) {
	if _, ok := idx.ids[v]; ok {
		return v, true
	}
	target, ok := idx.byShortname[strings.ToLower(v)]
	return target, ok
}

// ingredients converts recipe inputs into store references. Ingredients that
// resolve to a record use its item_id; the rest keep the raw id as a soft
// reference. Fractional amounts round to the nearest whole unit.
func (idx *index) ingredients(in []Ingredient) []items.Ingredient {
	out := make([]items.Ingredient, 0, len(in))
	for _, ing := range in {
		qty := int(math.Round(ing.Amount))
		if qty <= 0 {
			continue
		}
		ref, ok := idx.resolve(ing.ItemID, ing.Shortname)
		if !ok {
			ref = strings.TrimSpace(string(ing.ItemID))
			if ref == "" {
				ref = strings.TrimSpace(ing.Shortname)
			}
		}
		if ref == "" {
			continue
		}
		out = append(out, items.Ingredient{ItemID: ref, Quantity: qty})
	}
	return slices.Clip(out)
}

// ParseMapping reads "recipe=item" pairs, as given on the command line.
func ParseMapping(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// FromRecords exports store records that carry ingredients as a Source, so
// a merged database can be written back out as crafting data.
func FromRecords(recs []items.Record) Source {
	var src Source
	for _, rec := range recs {
		if len(rec.Ingredients) == 0 {
			continue
		}
		recipe := Recipe{
			ItemID:        ID(rec.ItemID),
			Shortname:     rec.Shortname,
			CraftTime:     rec.CraftTime,
			UserCraftable: true,
		}
		if rec.NumericID != 0 {
			recipe.ItemID = ID(strconv.FormatInt(rec.NumericID, 10))
		}
		for _, ing := range rec.Ingredients {
			recipe.Ingredients = append(recipe.Ingredients, Ingredient{ItemID: ID(ing.ItemID), Amount: float64(ing.Quantity)})
		}
		src.Recipes = append(src.Recipes, recipe)
	}
	return src
}
