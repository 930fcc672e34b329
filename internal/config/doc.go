// Package config loads, normalizes, and validates rustactions configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RUSTACTIONS_API_TOKEN and STEAM_USERNAME. The Config type centralizes every
// knob the daemon and CLI need: data and log directories, the Rust keys.cfg
// location, steamcmd settings, input timing, and background task intervals.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
