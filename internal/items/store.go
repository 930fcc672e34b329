package items

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"rustactions/internal/fileutil"
	"rustactions/internal/logging"
	"rustactions/internal/services"
	"rustactions/internal/textutil"
)

// fuzzyNameThreshold is the minimum cosine score for FindByName's fuzzy pass.
const fuzzyNameThreshold = 0.6

// Store provides thread-safe access to the item database.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	order   []string
	records map[string]Record
	meta    Metadata
}

type document struct {
	Metadata Metadata        `json:"metadata"`
	Items    json.RawMessage `json:"items"`
}

// Open loads the database at path. A missing file yields an empty store; the
// file is created on the first mutation. An empty path keeps the store in
// memory only.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:    strings.TrimSpace(path),
		logger:  logging.NewComponentLogger(logger, "items"),
		records: make(map[string]Record),
	}
	if s.path == "" {
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the record stored under id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[strings.TrimSpace(id)]
	if !ok {
		return Record{}, services.Wrap(services.ErrNotFound, "items", "get", fmt.Sprintf("item %q not found", id), nil)
	}
	return rec.clone(), nil
}

// List returns records matching filter in insertion order.
func (s *Store) List(filter Filter) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if filter.matches(rec) {
			out = append(out, rec.clone())
		}
	}
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Metadata returns the document metadata.
func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta := s.meta
	meta.ItemCount = len(s.order)
	return meta
}

// Categories returns the distinct categories, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, rec := range s.records {
		if rec.Category != "" {
			seen[rec.Category] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Stats aggregates counts per category and the mean craft time.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{TotalCount: len(s.order), PerCategory: make(map[string]int)}
	var total float64
	for _, rec := range s.records {
		stats.PerCategory[rec.Category]++
		total += rec.CraftTime
	}
	if stats.TotalCount > 0 {
		stats.AvgCraftTime = total / float64(stats.TotalCount)
	}
	return stats
}

// FindByName resolves a display name. Exact case-insensitive matches on name,
// item_id, or shortname win; otherwise the closest name by token similarity is
// returned if it scores high enough.
func (s *Store) FindByName(name string) (Record, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		rec := s.records[id]
		if strings.EqualFold(rec.Name, name) {
			return rec.clone(), true
		}
	}
	for _, id := range s.order {
		rec := s.records[id]
		if strings.EqualFold(rec.ItemID, name) || (rec.Shortname != "" && strings.EqualFold(rec.Shortname, name)) {
			return rec.clone(), true
		}
	}

	names := make([]string, len(s.order))
	for i, id := range s.order {
		names[i] = s.records[id].Name
	}
	match, ok := textutil.BestMatch(name, names, fuzzyNameThreshold)
	if !ok {
		return Record{}, false
	}
	rec := s.records[s.order[match.Index]]
	s.logger.Debug("fuzzy item name match",
		logging.String("query", name),
		logging.String("item_id", rec.ItemID),
		logging.Float64("score", match.Score))
	return rec.clone(), true
}

// FindByNumericID returns the record carrying the game's numeric itemid.
func (s *Store) FindByNumericID(id int64) (Record, bool) {
	if id == 0 {
		return Record{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.order {
		if rec := s.records[key]; rec.NumericID == id {
			return rec.clone(), true
		}
	}
	return Record{}, false
}

// Upsert inserts or replaces a record. Replacing keeps the original position.
func (s *Store) Upsert(rec Record) (bool, error) {
	var created bool
	err := s.Update(func(b *Batch) error {
		var err error
		created, _, err = b.Put(rec)
		return err
	})
	return created, err
}

// UpsertMany applies Upsert to each record and saves once.
func (s *Store) UpsertMany(recs []Record) (created, updated int, err error) {
	err = s.Update(func(b *Batch) error {
		for _, rec := range recs {
			isNew, changed, err := b.Put(rec)
			if err != nil {
				return err
			}
			switch {
			case isNew:
				created++
			case changed:
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// Patch applies a partial update to an existing record.
func (s *Store) Patch(id string, patch Patch) (Record, error) {
	var out Record
	err := s.Update(func(b *Batch) error {
		rec, ok := b.Get(id)
		if !ok {
			return services.Wrap(services.ErrNotFound, "items", "patch", fmt.Sprintf("item %q not found", id), nil)
		}
		out = patch.apply(rec)
		_, _, err := b.Put(out)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return out.clone(), nil
}

// Delete removes a record. Deleting an absent id reports false without error.
func (s *Store) Delete(id string) (bool, error) {
	var removed bool
	err := s.Update(func(b *Batch) error {
		removed = b.Delete(id)
		return nil
	})
	return removed, err
}

// ReplaceAll swaps the entire contents, as after a content sync.
func (s *Store) ReplaceAll(recs []Record, meta Metadata) error {
	return s.Update(func(b *Batch) error {
		b.reset()
		for _, rec := range recs {
			if _, _, err := b.Put(rec); err != nil {
				return err
			}
		}
		b.SetSource(meta.Source)
		b.changed = true
		return nil
	})
}

// Clear removes every record and persists the empty document.
func (s *Store) Clear() error {
	return s.Update(func(b *Batch) error {
		b.reset()
		b.SetSource("")
		b.changed = true
		return nil
	})
}

// Update runs fn against a locked, copy-on-write view of the store. Changes
// are persisted once when fn returns nil and at least one record changed; on
// error the store is left untouched.
func (s *Store) Update(fn func(*Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &Batch{
		order:   slices.Clone(s.order),
		records: maps.Clone(s.records),
		meta:    s.meta,
	}
	if err := fn(b); err != nil {
		return err
	}
	if !b.changed {
		return nil
	}
	b.meta.ItemCount = len(b.order)
	b.meta.LastUpdated = time.Now().UTC()
	if err := s.persist(b.order, b.records, b.meta); err != nil {
		return err
	}
	s.order, s.records, s.meta = b.order, b.records, b.meta
	return nil
}

// Batch is the mutable view handed to Update callbacks.
type Batch struct {
	order   []string
	records map[string]Record
	meta    Metadata
	changed bool
}

// Get returns a copy of the record stored under id.
func (b *Batch) Get(id string) (Record, bool) {
	rec, ok := b.records[strings.TrimSpace(id)]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Records returns copies of every record in insertion order.
func (b *Batch) Records() []Record {
	out := make([]Record, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.records[id].clone())
	}
	return out
}

// Put validates and stores rec. It reports whether the record is new and
// whether the stored value changed.
func (b *Batch) Put(rec Record) (created, changed bool, err error) {
	rec.ItemID = strings.TrimSpace(rec.ItemID)
	if err := rec.Validate(); err != nil {
		return false, false, err
	}
	rec = rec.clone()
	prev, exists := b.records[rec.ItemID]
	if exists && prev.Equal(rec) {
		return false, false, nil
	}
	if !exists {
		b.order = append(b.order, rec.ItemID)
	}
	b.records[rec.ItemID] = rec
	b.changed = true
	return !exists, true, nil
}

// Delete removes id and reports whether it was present.
func (b *Batch) Delete(id string) bool {
	id = strings.TrimSpace(id)
	if _, ok := b.records[id]; !ok {
		return false
	}
	delete(b.records, id)
	b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == id })
	b.changed = true
	return true
}

// SetSource records where the current contents came from.
func (b *Batch) SetSource(source string) {
	if b.meta.Source != source {
		b.meta.Source = source
		b.changed = true
	}
}

func (b *Batch) reset() {
	b.order = nil
	b.records = make(map[string]Record)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrIO, "items", "load", "read item database", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return services.Wrap(services.ErrIO, "items", "load", "parse item database", err)
	}
	recs, err := decodeItems(doc.Items)
	if err != nil {
		return services.Wrap(services.ErrIO, "items", "load", "parse item records", err)
	}

	for _, rec := range recs {
		rec.ItemID = strings.TrimSpace(rec.ItemID)
		if rec.ItemID == "" {
			continue
		}
		if rec.StackSize <= 0 {
			rec.StackSize = 1
		}
		if _, dup := s.records[rec.ItemID]; !dup {
			s.order = append(s.order, rec.ItemID)
		}
		s.records[rec.ItemID] = rec.clone()
	}
	s.meta = doc.Metadata

	s.logger.Debug("loaded item database",
		logging.Int("item_count", len(s.order)),
		logging.String("database_path", s.path))
	return nil
}

// decodeItems accepts the current array layout and the older map layout
// keyed by numeric id with camelCase fields.
func decodeItems(raw json.RawMessage) ([]Record, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil, nil
	case strings.HasPrefix(trimmed, "["):
		var recs []Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	case strings.HasPrefix(trimmed, "{"):
		var legacy map[string]legacyRecord
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(legacy))
		for key := range legacy {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		recs := make([]Record, 0, len(keys))
		for _, key := range keys {
			recs = append(recs, legacy[key].record(key))
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("unexpected items value %.20q", trimmed)
	}
}

type legacyRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	NumericID   int64   `json:"numericId"`
	Shortname   string  `json:"shortname"`
	Image       string  `json:"image"`
	Stackable   int     `json:"stackable"`
	CraftTime   float64 `json:"craftTime"`
	Ingredients []struct {
		ID     string `json:"id"`
		Amount int    `json:"amount"`
	} `json:"ingredients"`
}

func (l legacyRecord) record(key string) Record {
	rec := Record{
		ItemID:      l.ID,
		Name:        l.Name,
		Description: l.Description,
		Category:    l.Category,
		StackSize:   l.Stackable,
		CraftTime:   l.CraftTime,
		NumericID:   l.NumericID,
		Shortname:   l.Shortname,
	}
	if rec.ItemID == "" {
		rec.ItemID = key
	}
	if l.Image != "" {
		// Older documents stored "/api/items/images/<file>"; only the file name is kept.
		rec.Image = path.Base(l.Image)
	}
	for _, ing := range l.Ingredients {
		if ing.ID != "" && ing.Amount > 0 {
			rec.Ingredients = append(rec.Ingredients, Ingredient{ItemID: ing.ID, Quantity: ing.Amount})
		}
	}
	return rec
}

func (s *Store) persist(order []string, records map[string]Record, meta Metadata) error {
	if s.path == "" {
		return nil
	}
	recs := make([]Record, 0, len(order))
	for _, id := range order {
		recs = append(recs, records[id])
	}
	items, err := json.Marshal(recs)
	if err != nil {
		return services.Wrap(services.ErrIO, "items", "save", "marshal records", err)
	}
	data, err := json.MarshalIndent(document{Metadata: meta, Items: items}, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, "items", "save", "marshal database", err)
	}
	data = append(data, '\n')

	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "items", "save", "write database", err)
	}
	return nil
}
