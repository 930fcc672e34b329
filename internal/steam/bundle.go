package steam

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rustactions/internal/items"
	"rustactions/internal/textutil"
)

const uncategorized = "Uncategorized"

// bundleItem is one Bundles/items/<shortname>.json definition.
type bundleItem struct {
	ItemID      int64  `json:"itemid"`
	Shortname   string `json:"shortname"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Category    string `json:"Category"`
	StackSize   int    `json:"stacksize"`
	Stackable   int    `json:"stackable"`
}

// ImportReport counts the definitions read from a bundle directory.
type ImportReport struct {
	Files   int `json:"files"`
	Items   int `json:"items"`
	Skipped int `json:"skipped"`
}

// ImportBundles converts every item definition in dir into a store record.
// Records are keyed by the sanitized display name; a name shared by several
// definitions is disambiguated with the shortname. Unreadable files are
// skipped and counted.
func ImportBundles(dir string) ([]items.Record, ImportReport, error) {
	var report ImportReport
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, report, fmt.Errorf("list item definitions: %w", err)
	}
	sort.Strings(paths)
	report.Files = len(paths)
	if len(paths) == 0 {
		return nil, report, fmt.Errorf("no item definitions in %s", dir)
	}

	title := cases.Title(language.English)
	seen := make(map[string]int)
	recs := make([]items.Record, 0, len(paths))
	for _, path := range paths {
		def, err := readBundleItem(path)
		if err != nil {
			report.Skipped++
			continue
		}
		rec, ok := def.record(title, strings.TrimSuffix(filepath.Base(path), ".json"))
		if !ok {
			report.Skipped++
			continue
		}
		if n := seen[rec.ItemID]; n > 0 {
			alt := rec.ItemID + "_" + textutil.SanitizeToken(rec.Shortname)
			if rec.Shortname == "" || seen[alt] > 0 {
				alt = fmt.Sprintf("%s_%d", rec.ItemID, n+1)
			}
			seen[rec.ItemID]++
			rec.ItemID = alt
		}
		seen[rec.ItemID]++
		recs = append(recs, rec)
	}
	report.Items = len(recs)
	return recs, report, nil
}

func readBundleItem(path string) (bundleItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bundleItem{}, err
	}
	var def bundleItem
	if err := json.Unmarshal(data, &def); err != nil {
		return bundleItem{}, err
	}
	return def, nil
}

func (d bundleItem) record(title cases.Caser, fileStem string) (items.Record, bool) {
	name := strings.TrimSpace(singleLine(d.Name))
	if name == "" {
		name = fileStem
	}
	shortname := strings.TrimSpace(d.Shortname)
	if shortname == "" {
		shortname = fileStem
	}

	id := textutil.SanitizeToken(name)
	if id == "" {
		id = textutil.SanitizeToken(shortname)
	}
	if id == "" && d.ItemID != 0 {
		id = strconv.FormatInt(d.ItemID, 10)
	}
	if id == "" {
		return items.Record{}, false
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = uncategorized
	} else {
		category = title.String(strings.ToLower(category))
	}

	stack := d.StackSize
	if stack <= 0 {
		stack = d.Stackable
	}
	if stack <= 0 {
		stack = 1
	}

	rec := items.Record{
		ItemID:      id,
		Name:        name,
		Category:    category,
		Description: strings.TrimSpace(singleLine(d.Description)),
		StackSize:   stack,
		Ingredients: []items.Ingredient{},
		NumericID:   d.ItemID,
		Shortname:   shortname,
	}
	if shortname != "" {
		rec.Image = textutil.SanitizeFileName(shortname) + ".png"
	}
	return rec, true
}

// singleLine folds control characters into spaces so bundle text survives
// record validation.
func singleLine(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
