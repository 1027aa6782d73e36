package mcp

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// argumentGetter is satisfied by mcp.CallToolRequest.
type argumentGetter interface {
	GetArguments() map[string]any
}

type outlineArgs struct {
	Path          string `json:"path"`
	IncludeErrors *bool  `json:"include_errors,omitempty"`
}

type lookupArgs struct {
	Root          string `json:"root"`
	QualifiedPath string `json:"qualified_path"`
}

type findArgs struct {
	Root  string `json:"root"`
	Name  string `json:"name"`
	Limit int    `json:"limit,omitempty"`
}

const (
	defaultFindLimit = 50
	maxFindLimit     = 500
)

// bindArguments decodes request arguments into target. Clients often send
// every value as a string, so "true", "10" and JSON-encoded arrays are
// coerced to the field's type.
func bindArguments[T any](request argumentGetter, target *T) error {
	jsonStringHook := func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return data, nil
		}

		switch {
		case t.Kind() == reflect.Slice && strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
			slicePtr := reflect.New(t)
			if err := json.Unmarshal([]byte(raw), slicePtr.Interface()); err == nil {
				return slicePtr.Elem().Interface(), nil
			}
		case t.Kind() == reflect.Bool && (raw == "true" || raw == "false"):
			return raw == "true", nil
		case t.Kind() >= reflect.Int && t.Kind() <= reflect.Float64:
			var n json.Number
			if err := json.Unmarshal([]byte(raw), &n); err == nil {
				return n, nil
			}
		}
		return data, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(request.GetArguments()); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// requireString rejects an empty required argument.
func requireString(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s parameter is required", name)
	}
	return nil
}

// clampLimit applies the default and bounds of symbol_find's limit.
func clampLimit(limit int) int {
	if limit == 0 {
		return defaultFindLimit
	}
	return max(1, min(limit, maxFindLimit))
}
