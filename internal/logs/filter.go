package logs

import (
	"encoding/json"
	"strings"

	"rustactions/internal/logging"
)

// Filter narrows log lines. Level is a minimum severity. Component and
// Action match the structured fields exactly. Search is a case-insensitive
// substring match on the raw line.
type Filter struct {
	Level     string
	Component string
	Action    string
	Search    string
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "WARNING": 2, "ERROR": 3}

// Empty reports whether the filter accepts everything.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.Level) == "" &&
		strings.TrimSpace(f.Component) == "" &&
		strings.TrimSpace(f.Action) == "" &&
		strings.TrimSpace(f.Search) == ""
}

// Matcher returns a line predicate. Console-format detail lines (indented
// "- key: value" rows) follow the decision made for their header line, so
// the predicate is stateful and must not be shared between readers.
func (f Filter) Matcher() func(string) bool {
	if f.Empty() {
		return func(string) bool { return true }
	}
	f.Level = strings.ToUpper(strings.TrimSpace(f.Level))
	f.Component = strings.TrimSpace(f.Component)
	f.Action = strings.TrimSpace(f.Action)
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))

	lastHeader := false
	return func(line string) bool {
		if strings.HasPrefix(line, "    ") {
			return lastHeader
		}
		lastHeader = f.match(line)
		return lastHeader
	}
}

func (f Filter) match(line string) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(line), f.Search) {
		return false
	}
	if f.Level == "" && f.Component == "" && f.Action == "" {
		return true
	}

	level, component, action, ok := parseJSONLine(line)
	if !ok {
		level, component, action, ok = parseConsoleLine(line)
		if !ok {
			return false
		}
	}
	if f.Level != "" && levelRank[level] < levelRank[f.Level] {
		return false
	}
	if f.Component != "" && component != f.Component {
		return false
	}
	if f.Action != "" && action != f.Action {
		return false
	}
	return true
}

func parseJSONLine(line string) (level, component, action string, ok bool) {
	if !strings.HasPrefix(line, "{") {
		return "", "", "", false
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return "", "", "", false
	}
	level, _ = record["level"].(string)
	component, _ = record[logging.FieldComponent].(string)
	action, _ = record[logging.FieldAction].(string)
	return strings.ToUpper(level), component, action, true
}

// parseConsoleLine reads "2006-01-02 15:04:05 LEVEL [component] action ..."
// headers written by the console handler.
func parseConsoleLine(line string) (level, component, action string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", "", "", false
	}
	level = strings.ToUpper(fields[2])
	if _, known := levelRank[level]; !known {
		return "", "", "", false
	}
	rest := fields[3:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "[") && strings.HasSuffix(rest[0], "]") {
		component = strings.Trim(rest[0], "[]")
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] != "-" && rest[0] != "req" {
		action = rest[0]
	}
	return level, component, action, true
}
