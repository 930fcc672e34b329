// Package main hosts the rustactions CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon: game actions, item store maintenance, bind
// inspection, action history, and the steamcmd content sync. It also runs
// the daemon itself ("rustactions daemon") and scaffolds configuration.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
