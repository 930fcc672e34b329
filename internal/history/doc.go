// Package history records dispatched actions in a SQLite database so recent
// activity can be listed from the CLI or the HTTP API.
//
// Rows are append-only. The table is pruned to a configured maximum after
// each insert.
package history
