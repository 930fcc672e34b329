package keybinds

import (
	"strings"
	"sync"
)

// ComboSize is the number of keys pressed together for every bind.
const ComboSize = 5

// Slot ranges, inclusive.
const (
	CraftStart   = 0
	CraftEnd     = 2999
	APIStart     = 3000
	APIEnd       = 3999
	DynamicStart = 4000
	DynamicEnd   = 4999
)

// DynamicCapacity is the number of dynamic slots.
const DynamicCapacity = DynamicEnd - DynamicStart + 1

// MaxCraftItems is the number of items that fit the crafting range.
const MaxCraftItems = (CraftEnd - CraftStart + 1) / 2

// KeyPool lists the keys combinations are drawn from, in index order.
var KeyPool = []string{
	"keypaddivide", "keypadmultiply", "keypadminus", "keypadplus", "keypadperiod",
	"keypad1", "keypad2", "keypad3", "keypad4", "keypad5", "keypad6", "keypad7", "keypad8", "keypad9", "keypad0",
	"f13", "f14", "f15",
	"slash", "period", "comma", "leftbracket", "rightbracket",
}

var combinations = sync.OnceValue(func() []string {
	return generateCombinations(KeyPool, ComboSize)
})

// Combinations returns every ComboSize-key combination of KeyPool in
// lexicographic index order, joined by "+".
func Combinations() []string {
	return combinations()
}

// ComboForSlot returns the combination bound to slot.
func ComboForSlot(slot int) (string, bool) {
	all := combinations()
	if slot < 0 || slot >= len(all) {
		return "", false
	}
	return all[slot], true
}

func generateCombinations(pool []string, k int) []string {
	n := len(pool)
	if k <= 0 || k > n {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	var out []string
	parts := make([]string, k)
	for {
		for i, j := range idx {
			parts[i] = pool[j]
		}
		out = append(out, strings.Join(parts, "+"))

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
