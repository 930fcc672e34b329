package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"rustactions/internal/services"
)

// Params carries action arguments, typically decoded from a JSON body.
type Params map[string]any

// Parameter types.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeJSON   = "json"
)

// ParamSpec declares one accepted parameter.
type ParamSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Help     string `json:"help,omitempty"`
}

func invalid(format string, args ...any) error {
	return services.Validation("dispatch", fmt.Sprintf(format, args...))
}

// args wraps validated params with typed accessors.
type args struct {
	params Params
}

func (a args) has(name string) bool {
	v, ok := a.params[name]
	return ok && v != nil
}

func (a args) str(name string) string {
	v, ok := a.params[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func (a args) requireString(name string) (string, error) {
	s := a.str(name)
	if s == "" {
		return "", invalid("%s is required", name)
	}
	return s, nil
}

func (a args) float(name string) (float64, bool, error) {
	v, ok := a.params[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, true, invalid("%s must be a number", name)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, true, invalid("%s must be a number", name)
		}
		f = parsed
	default:
		return 0, true, invalid("%s must be a number", name)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, invalid("%s must be a finite number", name)
	}
	return f, true, nil
}

// intIn returns the integer parameter, def when absent, and rejects values
// outside [lo, hi].
func (a args) intIn(name string, def, lo, hi int) (int, error) {
	f, ok, err := a.float(name)
	if err != nil {
		return 0, invalid("%s must be an integer", name)
	}
	if !ok {
		return def, nil
	}
	if f != math.Trunc(f) {
		return 0, invalid("%s must be an integer", name)
	}
	n := int(f)
	if n < lo || n > hi {
		return 0, invalid("%s must be between %d and %d", name, lo, hi)
	}
	return n, nil
}

func (a args) requireFloat(name string) (float64, error) {
	f, ok, err := a.float(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, invalid("%s is required", name)
	}
	return f, nil
}

func (a args) requireBool(name string) (bool, error) {
	v, ok := a.params[name]
	if !ok || v == nil {
		return false, invalid("%s is required", name)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	case json.Number:
		if n := t.String(); n == "0" || n == "1" {
			return n == "1", nil
		}
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, nil
		}
	}
	return false, invalid("%s must be a boolean", name)
}

// validate rejects parameters the action does not declare and checks that
// required ones are present.
func validate(spec ActionSpec, params Params) error {
	declared := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		declared[p.Name] = true
	}
	for name := range params {
		if !declared[name] {
			return invalid("%s does not accept parameter %q", spec.Name, name)
		}
	}
	for _, p := range spec.Params {
		if !p.Required {
			continue
		}
		v, ok := params[p.Name]
		if !ok || (v == nil && p.Type != TypeJSON) {
			return invalid("%s is required", p.Name)
		}
	}
	return nil
}
