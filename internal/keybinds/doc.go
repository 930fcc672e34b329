// Package keybinds maps game actions onto generated key combinations and
// maintains the keys.cfg file that binds them in the game.
//
// Every bind uses a unique five-key combination drawn from a fixed pool of
// keys players rarely touch. Slots are partitioned into crafting, API and
// dynamic ranges. Crafting and API slots are derived from the item database
// and a static command table; dynamic slots hold parametric console commands
// (chat, connect, quantity crafts) and are recycled least-recently-assigned
// first. The dynamic set survives restarts through comments in keys.cfg.
package keybinds
