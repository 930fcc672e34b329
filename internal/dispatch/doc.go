// Package dispatch executes named game actions.
//
// Each action declares the parameters it accepts. Execute validates them,
// probes window focus, and drives the keyboard: static commands press their
// generated bind, parametric commands (chat, connect, overflow crafts) first
// assign a dynamic bind and ask the game to reload keys.cfg. Chat feedback
// binds are pressed in the same keyboard sequence as the primary step, after
// it. Every execution is recorded to history and published as an event when
// those are configured.
package dispatch
