// Package recipes merges externally extracted crafting data into the item
// store.
//
// A Source is keyed by the game's numeric or string item ids, which rarely
// match store identifiers one-to-one. Merge resolves each recipe to a store
// record, attaches its ingredient list, and reports how many entries matched.
// Entries that resolve to nothing are dropped and counted, never treated as
// errors.
package recipes
