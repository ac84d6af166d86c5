// Package parameters is the engine's free-form configuration surface: a flat
// name=value map assembled from the CLI's repeatable --option flags (or a single
// comma-separated config string) and drained by the engine builders via the typed
// PopParamOr/GetParamOr accessors.
package parameters

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Params is a parsed set of name=value configuration entries.
type Params map[string]string

// NewFromConfigString parses a comma-separated list of name=value entries. A name
// without '=' is recorded with an empty value, which bool accessors read as true.
func NewFromConfigString(config string) Params {
	params := make(Params)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		params[name] = value
	}
	return params
}

// Value is the set of types a configuration entry can be parsed into.
type Value interface {
	bool | int | float64 | string
}

// GetParamOr parses the entry under key, or returns defaultValue when the key is
// absent. A present-but-empty value means true for bool keys and defaultValue for the
// numeric ones. A malformed value returns defaultValue alongside the parse error.
func GetParamOr[T Value](params Params, key string, defaultValue T) (T, error) {
	raw, ok := params[key]
	if !ok {
		return defaultValue, nil
	}
	var parsed any
	var err error
	switch any(defaultValue).(type) {
	case string:
		parsed = raw
	case bool:
		if raw == "" {
			parsed = true
		} else {
			var b bool
			b, err = strconv.ParseBool(raw)
			parsed = b
		}
	case int:
		if raw == "" {
			return defaultValue, nil
		}
		var n int
		n, err = strconv.Atoi(raw)
		parsed = n
	case float64:
		if raw == "" {
			return defaultValue, nil
		}
		var x float64
		x, err = strconv.ParseFloat(raw, 64)
		parsed = x
	}
	if err != nil {
		return defaultValue, errors.Wrapf(err, "parameters: parsing %s=%q", key, raw)
	}
	return parsed.(T), nil
}

// PopParamOr is GetParamOr plus removal: the entry is deleted once read, so a caller
// can pop every key it understands and then warn about whatever is left over.
func PopParamOr[T Value](params Params, key string, defaultValue T) (T, error) {
	value, err := GetParamOr(params, key, defaultValue)
	delete(params, key)
	return value, err
}
