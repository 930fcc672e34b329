// Package items implements the local item and recipe database.
//
// A Store keeps item records in memory in insertion order and persists them as
// a single JSON document. Every mutation is written synchronously through a
// temp file and rename, under a mutex shared with readers. Update exposes a
// locked Batch for multi-record changes (recipe merges, content sync) that
// should be saved once.
package items
