// Package preflight provides readiness checks for the filesystem paths,
// listen address, and external binaries rustactions depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check as a
//     warning before serving requests.
//   - The CLI "rustactions status" command runs the same checks, plus
//     CheckDaemon against the running API, to display health.
//
// Checks never fail the caller; they report a Result per concern.
package preflight
