// Package steam refreshes the item database from the game's own assets.
//
// steamcmd downloads the dedicated client files; the item definitions under
// Bundles/items are imported into the item store, their PNG icons copied to
// the images directory, and an optional crafting data document merged as
// recipes. Every failure of the external tool surfaces as services.ErrSync.
//
// Credentials are forwarded to steamcmd on its command line and held in
// memory for the life of the process. Only the username, a logged-in flag,
// and the login time are written to disk.
package steam
