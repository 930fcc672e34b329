package keybinds

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"rustactions/internal/fileutil"
	"rustactions/internal/items"
	"rustactions/internal/logging"
	"rustactions/internal/services"
)

// CraftBind is the craft/cancel slot pair of one craftable item.
type CraftBind struct {
	ItemID    string `json:"item_id"`
	NumericID int64  `json:"numeric_id"`
	Name      string `json:"name"`
	Craft     int    `json:"craft_slot"`
	Cancel    int    `json:"cancel_slot"`
}

// DynamicBind is one assigned dynamic slot.
type DynamicBind struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Slot  int    `json:"slot"`
	Combo string `json:"combo,omitempty"`
}

// Assignment is the result of AssignDynamic.
type Assignment struct {
	DynamicBind
	Command string `json:"command"`
	// Created reports that keys.cfg changed and the game must reload it
	// before the combination does anything.
	Created bool `json:"created"`
}

// Summary describes the current bind layout.
type Summary struct {
	Path              string `json:"path"`
	FileExists        bool   `json:"file_exists"`
	ReadOnly          bool   `json:"read_only"`
	TotalCombinations int    `json:"total_combinations"`
	CraftItems        int    `json:"craft_items"`
	APICommands       int    `json:"api_commands"`
	DynamicBinds      int    `json:"dynamic_binds"`
	DynamicAvailable  int    `json:"dynamic_available"`
	CachedActions     int    `json:"cached_actions"`
}

// Manager owns the bind layout and keys.cfg. It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger

	crafts    []CraftBind
	byItemID  map[string]int
	byNumeric map[int64]int

	dynamic map[string]int
	order   []string
	next    int

	cache map[string]string
}

// New loads the dynamic binds recorded in the keys file at path. A missing
// file is not an error; WriteConfig creates it.
func New(path string, logger *slog.Logger) (*Manager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "keybinds", "init", "keys.cfg path is empty", nil)
	}
	m := &Manager{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "keybinds"),
		byItemID:  map[string]int{},
		byNumeric: map[int64]int{},
		cache:     map[string]string{},
	}
	m.resetDynamic()
	if _, err := m.loadDynamic(); err != nil {
		return nil, err
	}
	return m, nil
}

// Path returns the managed keys.cfg path.
func (m *Manager) Path() string {
	return m.path
}

// Resolve returns the key combination for an action: an API command name,
// CraftAction/CancelAction of an item, DynamicAction of an assigned bind, or
// "slot:<n>". Results are cached until ClearCache or a layout change.
func (m *Manager) Resolve(action string) (string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return "", services.Validation("keybinds", "action is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if combo, ok := m.cache[action]; ok {
		return combo, nil
	}
	slot, err := m.slotFor(action)
	if err != nil {
		return "", err
	}
	combo, ok := ComboForSlot(slot)
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "keybinds", "resolve", fmt.Sprintf("no combination for slot %d", slot), nil)
	}
	m.cache[action] = combo
	m.logger.Debug("combo resolved", logging.Action(action), logging.Int("bind_slot", slot), logging.String(logging.FieldCombo, combo))
	return combo, nil
}

func (m *Manager) slotFor(action string) (int, error) {
	notFound := func(msg string) (int, error) {
		return 0, services.Wrap(services.ErrNotFound, "keybinds", "resolve", msg, nil)
	}
	switch {
	case strings.HasPrefix(action, craftPrefix):
		idx, ok := m.byItemID[strings.TrimPrefix(action, craftPrefix)]
		if !ok {
			return notFound(fmt.Sprintf("no craft bind for %q", strings.TrimPrefix(action, craftPrefix)))
		}
		return m.crafts[idx].Craft, nil
	case strings.HasPrefix(action, cancelPrefix):
		idx, ok := m.byItemID[strings.TrimPrefix(action, cancelPrefix)]
		if !ok {
			return notFound(fmt.Sprintf("no cancel bind for %q", strings.TrimPrefix(action, cancelPrefix)))
		}
		return m.crafts[idx].Cancel, nil
	case strings.HasPrefix(action, dynamicPrefix):
		slot, ok := m.dynamic[strings.TrimPrefix(action, dynamicPrefix)]
		if !ok {
			return notFound(fmt.Sprintf("no dynamic bind for %q", strings.TrimPrefix(action, dynamicPrefix)))
		}
		return slot, nil
	case strings.HasPrefix(action, slotPrefix):
		slot, err := strconv.Atoi(strings.TrimPrefix(action, slotPrefix))
		if err != nil || slot < CraftStart || slot > DynamicEnd {
			return 0, services.Validation("keybinds", fmt.Sprintf("invalid slot %q", action))
		}
		return slot, nil
	}
	if slot, ok := APISlot(action); ok {
		return slot, nil
	}
	return notFound(fmt.Sprintf("unknown action %q", action))
}

// ClearCache drops every cached resolution and returns how many were held.
// Resolutions are derived data, so nothing is lost.
func (m *Manager) ClearCache() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.cache)
	clear(m.cache)
	return n
}

// CraftBinding returns the craft/cancel slots of an item.
func (m *Manager) CraftBinding(itemID string) (CraftBind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byItemID[itemID]
	if !ok {
		return CraftBind{}, false
	}
	return m.crafts[idx], true
}

// CraftBinds returns the crafting table in slot order.
func (m *Manager) CraftBinds() []CraftBind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.crafts)
}

// DynamicBinds returns assigned dynamic binds, least recently assigned first.
func (m *Manager) DynamicBinds() []DynamicBind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dynamicListLocked()
}

func (m *Manager) dynamicListLocked() []DynamicBind {
	out := make([]DynamicBind, 0, len(m.order))
	for _, key := range m.order {
		kind, value, _ := strings.Cut(key, ":")
		slot := m.dynamic[key]
		combo, _ := ComboForSlot(slot)
		out = append(out, DynamicBind{Kind: kind, Value: value, Slot: slot, Combo: combo})
	}
	return out
}

// Generate rebuilds the crafting table from recs and rewrites keys.cfg.
// Items qualify when they have ingredients and a numeric game id; at most
// MaxCraftItems are bound, in record order.
func (m *Manager) Generate(recs []items.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	crafts := make([]CraftBind, 0, min(len(recs), MaxCraftItems))
	byItemID := make(map[string]int, len(recs))
	byNumeric := make(map[int64]int, len(recs))
	skipped := 0
	for _, rec := range recs {
		if len(rec.Ingredients) == 0 || rec.NumericID == 0 {
			continue
		}
		if _, dup := byNumeric[rec.NumericID]; dup {
			continue
		}
		if len(crafts) >= MaxCraftItems {
			skipped++
			continue
		}
		i := len(crafts)
		crafts = append(crafts, CraftBind{
			ItemID:    rec.ItemID,
			NumericID: rec.NumericID,
			Name:      rec.Name,
			Craft:     CraftStart + 2*i,
			Cancel:    CraftStart + 2*i + 1,
		})
		byItemID[rec.ItemID] = i
		byNumeric[rec.NumericID] = i
	}
	if skipped > 0 {
		logging.WarnWithContext(m.logger, "crafting range full", "craft_binds_truncated",
			logging.Int("skipped", skipped),
			logging.String(logging.FieldErrorHint, "remove unused craftable items from the database"),
			logging.String(logging.FieldImpact, "skipped items can only be crafted through dynamic binds"),
		)
	}

	prev, prevByID, prevByNum := m.crafts, m.byItemID, m.byNumeric
	m.crafts, m.byItemID, m.byNumeric = crafts, byItemID, byNumeric
	if err := m.writeLocked(); err != nil {
		m.crafts, m.byItemID, m.byNumeric = prev, prevByID, prevByNum
		return 0, err
	}
	clear(m.cache)
	m.logger.Info("craft binds generated", logging.Int("craft_items", len(crafts)))
	return len(crafts), nil
}

// AssignDynamic returns the slot bound to kind/value, assigning one when
// needed. A new assignment takes the next free slot or, when every slot is
// taken, replaces the least recently assigned bind; keys.cfg is rewritten
// and Assignment.Created is set.
func (m *Manager) AssignDynamic(kind, value string) (Assignment, error) {
	value = strings.TrimSpace(value)
	command, ok := DynamicCommand(kind, value)
	if !ok {
		return Assignment{}, services.Validation("keybinds", fmt.Sprintf("unknown dynamic bind kind %q", kind))
	}
	if value == "" {
		return Assignment{}, services.Validation("keybinds", "dynamic bind value is required")
	}
	if strings.ContainsFunc(value, unicode.IsControl) {
		return Assignment{}, services.Validation("keybinds", "dynamic bind value must be a single line without control characters")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := dynamicKey(kind, value)
	if slot, ok := m.dynamic[key]; ok {
		m.touchLocked(key)
		combo, _ := ComboForSlot(slot)
		return Assignment{DynamicBind: DynamicBind{Kind: kind, Value: value, Slot: slot, Combo: combo}, Command: command}, nil
	}

	snapshot := m.snapshotDynamic()
	var slot int
	if len(m.dynamic) >= DynamicCapacity {
		oldest := m.order[0]
		slot = m.dynamic[oldest]
		m.order = m.order[1:]
		delete(m.dynamic, oldest)
		delete(m.cache, dynamicPrefix+oldest)
		m.logger.Info("dynamic bind replaced", logging.Int("bind_slot", slot), logging.String("reason", "replaced "+oldest))
	} else {
		slot = m.nextFreeLocked()
	}
	m.dynamic[key] = slot
	m.order = append(m.order, key)

	if err := m.writeLocked(); err != nil {
		m.restoreDynamic(snapshot)
		return Assignment{}, err
	}
	combo, _ := ComboForSlot(slot)
	m.logger.Info("dynamic bind assigned",
		logging.EventType("bind_assigned"),
		logging.String("bind_kind", kind),
		logging.Int("bind_slot", slot),
	)
	return Assignment{
		DynamicBind: DynamicBind{Kind: kind, Value: value, Slot: slot, Combo: combo},
		Command:     command,
		Created:     true,
	}, nil
}

func (m *Manager) touchLocked(key string) {
	if i := slices.Index(m.order, key); i >= 0 {
		m.order = append(slices.Delete(m.order, i, i+1), key)
	}
}

// nextFreeLocked scans forward from the last assigned position, wrapping
// within the dynamic range. The caller guarantees a free slot exists.
func (m *Manager) nextFreeLocked() int {
	used := make(map[int]bool, len(m.dynamic))
	for _, slot := range m.dynamic {
		used[slot] = true
	}
	for i := range DynamicCapacity {
		slot := DynamicStart + (m.next-DynamicStart+i)%DynamicCapacity
		if !used[slot] {
			m.next = slot + 1
			if m.next > DynamicEnd {
				m.next = DynamicStart
			}
			return slot
		}
	}
	return DynamicStart
}

type dynamicSnapshot struct {
	dynamic map[string]int
	order   []string
	next    int
}

func (m *Manager) snapshotDynamic() dynamicSnapshot {
	cp := make(map[string]int, len(m.dynamic))
	for k, v := range m.dynamic {
		cp[k] = v
	}
	return dynamicSnapshot{dynamic: cp, order: slices.Clone(m.order), next: m.next}
}

func (m *Manager) restoreDynamic(s dynamicSnapshot) {
	m.dynamic, m.order, m.next = s.dynamic, s.order, s.next
}

func (m *Manager) resetDynamic() {
	m.dynamic = map[string]int{}
	m.order = nil
	m.next = DynamicStart
}

// ReloadDynamicBinds re-reads keys.cfg and replaces the dynamic set with what
// the file records. Crafting and API binds are untouched.
func (m *Manager) ReloadDynamicBinds() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.cache {
		if strings.HasPrefix(key, dynamicPrefix) {
			delete(m.cache, key)
		}
	}
	return m.loadDynamic()
}

func (m *Manager) loadDynamic() (int, error) {
	parsed, err := readConfig(m.path)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, "keybinds", "read config", m.path, err)
	}
	m.resetDynamic()
	for _, bind := range parsed.dynamic {
		key := dynamicKey(bind.Kind, bind.Value)
		if _, dup := m.dynamic[key]; dup {
			continue
		}
		if slices.ContainsFunc(m.order, func(k string) bool { return m.dynamic[k] == bind.Slot }) {
			continue
		}
		m.dynamic[key] = bind.Slot
		m.order = append(m.order, key)
		if bind.Slot >= m.next {
			m.next = bind.Slot + 1
		}
	}
	if m.next > DynamicEnd {
		m.next = DynamicStart
	}
	if parsed.skipped > 0 {
		m.logger.Warn("unparseable dynamic bind lines ignored",
			logging.Int("skipped", parsed.skipped),
			logging.String(logging.FieldEventType, "dynamic_bind_parse"),
			logging.String(logging.FieldErrorHint, "regenerate keys.cfg with dynamic binds cleared"),
			logging.String(logging.FieldImpact, "ignored binds are reassigned on next use"),
		)
	}
	m.logger.Debug("dynamic binds loaded", logging.Int("dynamic_binds", len(m.dynamic)))
	return len(m.dynamic), nil
}

// RegenerateCleared discards every dynamic assignment and rewrites keys.cfg
// with the static layout only.
func (m *Manager) RegenerateCleared() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.snapshotDynamic()
	m.resetDynamic()
	if err := m.writeLocked(); err != nil {
		m.restoreDynamic(snapshot)
		return err
	}
	for key := range m.cache {
		if strings.HasPrefix(key, dynamicPrefix) {
			delete(m.cache, key)
		}
	}
	m.logger.Info("keys.cfg regenerated with dynamic binds cleared")
	return nil
}

// WriteConfig rewrites keys.cfg from the current layout.
func (m *Manager) WriteConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked()
}

// writeLocked preserves the user section of the existing file, or the stock
// game binds when there is none, and leaves the file read-only so the game
// does not overwrite it on exit.
func (m *Manager) writeLocked() error {
	parsed, err := readConfig(m.path)
	if err != nil {
		return services.Wrap(services.ErrIO, "keybinds", "read config", m.path, err)
	}
	user := parsed.user
	if len(strings.TrimSpace(strings.Join(user, ""))) == 0 {
		user = defaultUserBinds
	}
	data := renderConfig(user, m.crafts, m.dynamicListLocked())

	if err := os.Chmod(m.path, 0o644); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrIO, "keybinds", "write config", "make keys.cfg writable", err)
	}
	if err := fileutil.WriteFileAtomic(m.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "keybinds", "write config", m.path, err)
	}
	if err := os.Chmod(m.path, 0o444); err != nil {
		return services.Wrap(services.ErrIO, "keybinds", "write config", "make keys.cfg read-only", err)
	}
	m.logger.Debug("keys.cfg written",
		logging.String("keys_path", m.path),
		logging.Int("craft_items", len(m.crafts)),
		logging.Int("dynamic_binds", len(m.dynamic)),
	)
	return nil
}

// Summary reports the layout and file state.
func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		Path:              m.path,
		TotalCombinations: len(Combinations()),
		CraftItems:        len(m.crafts),
		APICommands:       len(apiCommands),
		DynamicBinds:      len(m.dynamic),
		DynamicAvailable:  DynamicCapacity - len(m.dynamic),
		CachedActions:     len(m.cache),
	}
	if info, err := os.Stat(m.path); err == nil {
		s.FileExists = true
		s.ReadOnly = info.Mode().Perm()&0o200 == 0
	}
	return s
}
