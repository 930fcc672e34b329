// Package textutil normalizes and compares short item names.
//
// Names are tokenized into lowercase alphanumeric terms and turned into
// term-frequency fingerprints. BestMatch weights those fingerprints by inverse
// document frequency across the candidate set, so words shared by many items
// ("wooden", "large") count less than distinguishing ones ("hatchet").
package textutil
