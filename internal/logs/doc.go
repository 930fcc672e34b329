// Package logs reads the daemon's log files for the CLI.
//
// Last reads the final N lines with bounded memory, Follow polls for
// appended lines and restarts from the top when the file is truncated or
// replaced, and Filter narrows JSON records by level, component, or action.
package logs
