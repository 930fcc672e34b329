// Package daemon coordinates the long-running rustactions process.
//
// It owns the single-instance flock, the HTTP front end, and the wiring
// between the item store, the keybind manager, the action dispatcher, the
// steam client, the action history, and the event hub. Handlers only decode
// requests and render envelopes; behaviour lives in the packages they call.
package daemon
